package jobs_test

import (
	"net/url"
	"testing"

	"github.com/google/uuid"

	"github.com/klauselwerk/klausel/internal/jobs"
)

func TestFiltersWhere(t *testing.T) {
	docID := uuid.New()
	kind := jobs.KindAnalysis
	status := jobs.StatusInProgress

	tests := []struct {
		name     string
		filters  jobs.Filters
		wantSQL  string
		wantArgs int
	}{
		{
			name:     "empty filters",
			filters:  jobs.Filters{},
			wantSQL:  "",
			wantArgs: 0,
		},
		{
			name:     "status only",
			filters:  jobs.Filters{Status: &status},
			wantSQL:  " WHERE status = $1",
			wantArgs: 1,
		},
		{
			name:     "all filters",
			filters:  jobs.Filters{DocumentID: &docID, Kind: &kind, Status: &status},
			wantSQL:  " WHERE document_id = $1 AND kind = $2 AND status = $3",
			wantArgs: 3,
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
	docID := uuid.New()

	values := url.Values{}
	values.Set("document_id", docID.String())
	values.Set("kind", jobs.KindCompliance)
	values.Set("status", jobs.StatusPending)

	f := jobs.FiltersFromQuery(values)

	if f.DocumentID == nil || *f.DocumentID != docID {
		t.Errorf("DocumentID = %v, want %s", f.DocumentID, docID)
	}
	if f.Kind == nil || *f.Kind != jobs.KindCompliance {
		t.Errorf("Kind = %v, want %s", f.Kind, jobs.KindCompliance)
	}
	if f.Status == nil || *f.Status != jobs.StatusPending {
		t.Errorf("Status = %v, want %s", f.Status, jobs.StatusPending)
	}
}

func TestFiltersFromQueryInvalidDocumentID(t *testing.T) {
	values := url.Values{}
	values.Set("document_id", "not-a-uuid")

	f := jobs.FiltersFromQuery(values)

	if f.DocumentID != nil {
		t.Errorf("DocumentID = %v, want nil for invalid input", f.DocumentID)
	}
}

func TestValidKind(t *testing.T) {
	if !jobs.ValidKind(jobs.KindAnalysis) || !jobs.ValidKind(jobs.KindCompliance) {
		t.Error("expected analysis and compliance kinds to be valid")
	}
	if jobs.ValidKind("translation") {
		t.Error("expected unknown kind to be invalid")
	}
}
