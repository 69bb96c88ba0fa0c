// Package steps provides durable, replay-safe execution of named units of
// orchestration work. Each step's result is recorded in an append-only log
// keyed by (job, step name); re-running a job skips every step that already
// has a recorded result, so an interrupted job resumes without redoing
// completed work.
package steps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store is the durable record of completed steps. Implementations must
// treat the log as append-only: a saved result is never overwritten.
type Store interface {
	// FindResult returns the recorded result for (jobID, step), or
	// found=false when the step has not completed yet.
	FindResult(ctx context.Context, jobID uuid.UUID, step string) (result []byte, found bool, err error)
	// SaveResult records the result for (jobID, step).
	SaveResult(ctx context.Context, jobID uuid.UUID, step string, result []byte) error
}

// ErrPermanent marks a step error that must not be retried. Wrap with
// Permanent when a failure is deterministic (for example a structuring
// failure whose policy is to propagate).
var ErrPermanent = errors.New("permanent step failure")

// Permanent wraps err so the executor surfaces it without retrying.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Config carries the executor's tuning values. Timeout bounds ordinary
// steps; WaveTimeout bounds steps with large external fan-out, which need
// to tolerate cold starts of downstream inference services.
type Config struct {
	Timeout     time.Duration
	WaveTimeout time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Executor runs named steps for a single job against a durable store.
type Executor struct {
	store  Store
	jobID  uuid.UUID
	cfg    Config
	logger *slog.Logger
}

// NewExecutor creates an executor bound to the given job.
func NewExecutor(store Store, jobID uuid.UUID, cfg Config, logger *slog.Logger) *Executor {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Executor{
		store:  store,
		jobID:  jobID,
		cfg:    cfg,
		logger: logger.With("system", "steps", "job_id", jobID),
	}
}

// JobID returns the job this executor is bound to.
func (e *Executor) JobID() uuid.UUID {
	return e.jobID
}

// Run executes the named step under the default timeout, recording its
// JSON-encoded result on success. If a result is already recorded for
// this job and step name, it is returned without invoking fn.
func Run[T any](ctx context.Context, e *Executor, name string, fn func(context.Context) (T, error)) (T, error) {
	return run(ctx, e, name, e.cfg.Timeout, fn)
}

// RunWave executes the named step under the extended wave timeout. Use it
// for steps that fan out into many external calls.
func RunWave[T any](ctx context.Context, e *Executor, name string, fn func(context.Context) (T, error)) (T, error) {
	return run(ctx, e, name, e.cfg.WaveTimeout, fn)
}

func run[T any](ctx context.Context, e *Executor, name string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	recorded, found, err := e.store.FindResult(ctx, e.jobID, name)
	if err != nil {
		return zero, fmt.Errorf("step %s: lookup: %w", name, err)
	}
	if found {
		var result T
		if err := json.Unmarshal(recorded, &result); err != nil {
			return zero, fmt.Errorf("step %s: decode recorded result: %w", name, err)
		}
		e.logger.Debug("step replayed from log", "step", name)
		return result, nil
	}

	result, err := attempt(ctx, e, name, timeout, fn)
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("step %s: encode result: %w", name, err)
	}
	if err := e.store.SaveResult(ctx, e.jobID, name, encoded); err != nil {
		return zero, fmt.Errorf("step %s: record result: %w", name, err)
	}

	return result, nil
}

func attempt[T any](ctx context.Context, e *Executor, name string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for try := 1; try <= e.cfg.MaxAttempts; try++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		stepCtx := ctx
		cancel := context.CancelFunc(func() {})
		if timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, timeout)
		}

		result, err := fn(stepCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrPermanent) {
			return zero, fmt.Errorf("step %s: %w", name, err)
		}

		lastErr = err
		if try < e.cfg.MaxAttempts {
			e.logger.Warn(
				"step attempt failed, retrying",
				"step", name,
				"attempt", try,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(e.cfg.RetryDelay):
			}
		}
	}

	return zero, fmt.Errorf("step %s: %d attempts exhausted: %w", name, e.cfg.MaxAttempts, lastErr)
}
