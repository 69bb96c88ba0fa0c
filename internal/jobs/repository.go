package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/klauselwerk/klausel/pkg/pagination"
	"github.com/klauselwerk/klausel/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a job repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "jobs"),
		pagination: pagination,
	}
}

func (r *repo) Handler(launcher Launcher) *Handler {
	return NewHandler(r, launcher, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Job], error) {
	page.Normalize(r.pagination)

	where, args := filters.Where()

	countSQL := "SELECT COUNT(*) FROM jobs" + where
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	pageSQL := fmt.Sprintf(
		"SELECT %s FROM jobs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		jobColumns, where, len(args)+1, len(args)+2,
	)
	pageArgs := append(args, page.PageSize, page.Offset())

	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanJob)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Job, error) {
	q := fmt.Sprintf("SELECT %s FROM jobs WHERE id = $1", jobColumns)

	j, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &j, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Job, error) {
	if !ValidKind(cmd.Kind) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidKind, cmd.Kind)
	}

	q := fmt.Sprintf(`
		INSERT INTO jobs(id, document_id, kind)
		VALUES ($1, $2, $3)
		RETURNING %s`, jobColumns)

	j, err := repository.QueryOne(ctx, r.db, q, []any{uuid.New(), cmd.DocumentID, cmd.Kind}, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("job created", "id", j.ID, "document", j.DocumentID, "kind", j.Kind)
	return &j, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM jobs WHERE id = $1",
			id,
		)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("job deleted", "id", id)
	return nil
}

func (r *repo) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id,
		"UPDATE jobs SET status = $2, updated_at = now() WHERE id = $1",
		StatusInProgress,
	)
}

func (r *repo) SetStage(ctx context.Context, id uuid.UUID, stage string) error {
	return r.update(ctx, id,
		"UPDATE jobs SET stage = $2, updated_at = now() WHERE id = $1",
		stage,
	)
}

func (r *repo) MarkCompleted(ctx context.Context, id uuid.UUID, results json.RawMessage) error {
	err := r.update(ctx, id, `
		UPDATE jobs
		SET status = $2, progress = 100, results = $3, error_message = NULL, updated_at = now()
		WHERE id = $1`,
		StatusCompleted, []byte(results),
	)
	if err != nil {
		return err
	}

	r.logger.Info("job completed", "id", id)
	return nil
}

// SetProgress advances the progress percentage. GREATEST keeps replayed
// steps from moving the bar backwards.
func (r *repo) SetProgress(ctx context.Context, jobID uuid.UUID, progress int) error {
	return r.update(ctx, jobID,
		"UPDATE jobs SET progress = GREATEST(progress, $2), updated_at = now() WHERE id = $1",
		progress,
	)
}

func (r *repo) MarkFailed(ctx context.Context, jobID uuid.UUID, message string) error {
	err := r.update(ctx, jobID, `
		UPDATE jobs
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1`,
		StatusFailed, message,
	)
	if err != nil {
		return err
	}

	r.logger.Warn("job failed", "id", jobID, "error", message)
	return nil
}

func (r *repo) FindResult(ctx context.Context, jobID uuid.UUID, step string) ([]byte, bool, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT result FROM job_steps WHERE job_id = $1 AND step_name = $2",
		jobID, step,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find step result: %w", err)
	}
	return data, true, nil
}

func (r *repo) SaveResult(ctx context.Context, jobID uuid.UUID, step string, data []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO job_steps(job_id, step_name, result)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_id, step_name) DO UPDATE SET result = EXCLUDED.result, completed_at = now()`,
		jobID, step, data,
	)
	if err != nil {
		return fmt.Errorf("save step result: %w", err)
	}
	return nil
}

func (r *repo) update(ctx context.Context, id uuid.UUID, q string, args ...any) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, append([]any{id}, args...)...)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}
