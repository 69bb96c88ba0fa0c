package jobs

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/klauselwerk/klausel/pkg/repository"
)

const jobColumns = `id, document_id, kind, status, stage, progress, results, error_message, created_at, updated_at`

// Filters contains optional filtering criteria for job queries.
// Nil fields are ignored; all filters use exact matching.
type Filters struct {
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Kind       *string    `json:"kind,omitempty"`
	Status     *string    `json:"status,omitempty"`
}

// Where renders the filters as a SQL WHERE clause with positional
// arguments, or an empty string when no filters are set.
func (f Filters) Where() (string, []any) {
	var conditions []string
	var args []any

	if f.DocumentID != nil {
		args = append(args, *f.DocumentID)
		conditions = append(conditions, fmt.Sprintf("document_id = $%d", len(args)))
	}
	if f.Kind != nil {
		args = append(args, *f.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}
	if k := values.Get("kind"); k != "" {
		f.Kind = &k
	}
	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	return f
}

func scanJob(s repository.Scanner) (Job, error) {
	var j Job
	err := s.Scan(
		&j.ID,
		&j.DocumentID,
		&j.Kind,
		&j.Status,
		&j.Stage,
		&j.Progress,
		&j.Results,
		&j.ErrorMessage,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	return j, err
}
