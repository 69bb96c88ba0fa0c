package jobs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/klauselwerk/klausel/pkg/pagination"
)

// System defines the public contract for job domain operations. It also
// satisfies the step executor, progress tracker, and failure guard store
// interfaces so a single repository backs all pipeline durability.
type System interface {
	Handler(launcher Launcher) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Job], error)

	Find(ctx context.Context, id uuid.UUID) (*Job, error)
	Create(ctx context.Context, cmd CreateCommand) (*Job, error)
	Delete(ctx context.Context, id uuid.UUID) error

	MarkInProgress(ctx context.Context, id uuid.UUID) error
	SetStage(ctx context.Context, id uuid.UUID, stage string) error
	MarkCompleted(ctx context.Context, id uuid.UUID, results json.RawMessage) error

	// Store contracts consumed by the pipeline runtime.
	FindResult(ctx context.Context, jobID uuid.UUID, step string) ([]byte, bool, error)
	SaveResult(ctx context.Context, jobID uuid.UUID, step string, data []byte) error
	SetProgress(ctx context.Context, jobID uuid.UUID, progress int) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, message string) error
}

// Launcher starts pipeline execution for a newly created job. The API
// module implements this against the lifecycle context so launched
// pipelines outlive the originating HTTP request.
type Launcher interface {
	Launch(job *Job) error
}
