// Package guard brackets a whole job execution so that no error or
// panic escapes without the job reaching a recorded terminal state.
package guard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Store records a job's terminal failure.
type Store interface {
	MarkFailed(ctx context.Context, jobID uuid.UUID, message string) error
}

// Run executes fn and converts any returned error or panic into a
// terminal failed state on the job record. It always returns normally;
// the job is never left in an ambiguous state from the caller's view.
func Run(ctx context.Context, store Store, jobID uuid.UUID, logger *slog.Logger, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			record(ctx, store, jobID, logger, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := fn(ctx); err != nil {
		record(ctx, store, jobID, logger, err.Error())
	}
}

func record(ctx context.Context, store Store, jobID uuid.UUID, logger *slog.Logger, message string) {
	logger.Error(
		"job failed",
		"job_id", jobID,
		"error", message,
	)

	// Best effort against a possibly cancelled context; the failure state
	// must still land if at all reachable.
	if err := store.MarkFailed(context.WithoutCancel(ctx), jobID, message); err != nil {
		logger.Error(
			"recording job failure failed",
			"job_id", jobID,
			"error", err,
		)
	}
}
