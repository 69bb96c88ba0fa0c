// Package progress converts stage-relative completion into a monotonic
// 0-100 job progress value persisted at wave boundaries.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
)

// Store persists job progress. Implementations must never lower a job's
// recorded progress; replays may report earlier wave counts than what is
// already persisted.
type Store interface {
	SetProgress(ctx context.Context, jobID uuid.UUID, progress int) error
}

// Span is the progress sub-range owned by one stage.
type Span struct {
	Lo int
	Hi int
}

// At returns the progress value within the span after completed of total
// waves have finished. A non-positive total pins the value to the start
// of the span.
func (s Span) At(completed, total int) int {
	if total <= 0 {
		return s.Lo
	}
	if completed < 0 {
		completed = 0
	}
	if completed > total {
		completed = total
	}

	fraction := float64(completed) / float64(total)
	return s.Lo + int(math.Round(float64(s.Hi-s.Lo)*fraction))
}

// Tracker persists progress for a single job.
type Tracker struct {
	store  Store
	jobID  uuid.UUID
	logger *slog.Logger
}

// NewTracker creates a tracker bound to the given job.
func NewTracker(store Store, jobID uuid.UUID, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		jobID:  jobID,
		logger: logger.With("system", "progress", "job_id", jobID),
	}
}

// Advance records the progress implied by completed of total waves within
// span. Failures are surfaced so the caller can decide whether progress
// persistence is load-bearing for the stage.
func (t *Tracker) Advance(ctx context.Context, span Span, completed, total int) error {
	value := span.At(completed, total)
	if err := t.store.SetProgress(ctx, t.jobID, value); err != nil {
		return fmt.Errorf("persist progress %d: %w", value, err)
	}

	t.logger.Debug(
		"progress advanced",
		"progress", value,
		"completed_waves", completed,
		"total_waves", total,
	)
	return nil
}
