package documents_test

import (
	"net/url"
	"testing"

	"github.com/klauselwerk/klausel/internal/documents"
)

func TestFiltersWhere(t *testing.T) {
	filename := "vertrag"
	contentType := "application/pdf"

	tests := []struct {
		name     string
		filters  documents.Filters
		wantSQL  string
		wantArgs int
	}{
		{
			name:     "empty filters",
			filters:  documents.Filters{},
			wantSQL:  "",
			wantArgs: 0,
		},
		{
			name:     "filename only",
			filters:  documents.Filters{Filename: &filename},
			wantSQL:  " WHERE filename ILIKE $1",
			wantArgs: 1,
		},
		{
			name:     "both filters",
			filters:  documents.Filters{Filename: &filename, ContentType: &contentType},
			wantSQL:  " WHERE filename ILIKE $1 AND content_type = $2",
			wantArgs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.filters.Where()
			if sql != tt.wantSQL {
				t.Errorf("Where() sql = %q, want %q", sql, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("Where() args = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("filename", "liefervertrag")
	values.Set("content_type", "application/pdf")

	f := documents.FiltersFromQuery(values)

	if f.Filename == nil || *f.Filename != "liefervertrag" {
		t.Errorf("Filename = %v, want liefervertrag", f.Filename)
	}
	if f.ContentType == nil || *f.ContentType != "application/pdf" {
		t.Errorf("ContentType = %v, want application/pdf", f.ContentType)
	}
}

func TestFiltersFromQueryEmpty(t *testing.T) {
	f := documents.FiltersFromQuery(url.Values{})

	if f.Filename != nil || f.ContentType != nil {
		t.Errorf("expected empty filters, got %+v", f)
	}
}
