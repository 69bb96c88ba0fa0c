package documents

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/klauselwerk/klausel/pkg/repository"
)

const documentColumns = `id, filename, content_type, size_bytes, page_count, storage_key, uploaded_at, updated_at`

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. ContentType uses exact matching; Filename
// uses case-insensitive contains matching.
type Filters struct {
	Filename    *string `json:"filename,omitempty"`
	ContentType *string `json:"content_type,omitempty"`
}

// Where renders the filters as a SQL WHERE clause with positional
// arguments, or an empty string when no filters are set.
func (f Filters) Where() (string, []any) {
	var conditions []string
	var args []any

	if f.Filename != nil {
		args = append(args, "%"+*f.Filename+"%")
		conditions = append(conditions, fmt.Sprintf("filename ILIKE $%d", len(args)))
	}
	if f.ContentType != nil {
		args = append(args, *f.ContentType)
		conditions = append(conditions, fmt.Sprintf("content_type = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if fn := values.Get("filename"); fn != "" {
		f.Filename = &fn
	}
	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.StorageKey,
		&d.UploadedAt,
		&d.UpdatedAt,
	)
	return d, err
}
