// Package jobs implements the processing job domain for Klausel.
// A job tracks one run of the analysis or compliance pipeline against a
// registered contract: its lifecycle status, current stage, progress
// percentage, durable per-step results, and final output.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job kinds. Each kind maps to one pipeline.
const (
	KindAnalysis   = "analysis"
	KindCompliance = "compliance"
)

// Job statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job represents one pipeline run against a contract document.
// Progress only ever moves forward; re-running a job after a crash
// replays completed steps without regressing the reported percentage.
type Job struct {
	ID           uuid.UUID       `json:"id"`
	DocumentID   uuid.UUID       `json:"document_id"`
	Kind         string          `json:"kind"`
	Status       string          `json:"status"`
	Stage        string          `json:"stage"`
	Progress     int             `json:"progress"`
	Results      json.RawMessage `json:"results,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateCommand carries the data needed to register a new job.
type CreateCommand struct {
	DocumentID uuid.UUID `json:"document_id"`
	Kind       string    `json:"kind"`
}

// ValidKind reports whether kind names a known pipeline.
func ValidKind(kind string) bool {
	return kind == KindAnalysis || kind == KindCompliance
}
