package analysis

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"runtime"

	"github.com/google/uuid"

	"github.com/klauselwerk/klausel/internal/config"
	"github.com/klauselwerk/klausel/internal/documents"
	"github.com/klauselwerk/klausel/internal/inference"
	"github.com/klauselwerk/klausel/internal/risk"
	"github.com/klauselwerk/klausel/pkg/guard"
	"github.com/klauselwerk/klausel/pkg/progress"
	"github.com/klauselwerk/klausel/pkg/steps"
)

// JobStore is the slice of the job system the pipeline needs: durable
// step results, monotonic progress, and lifecycle transitions.
type JobStore interface {
	steps.Store
	progress.Store
	guard.Store
	MarkInProgress(ctx context.Context, id uuid.UUID) error
	SetStage(ctx context.Context, id uuid.UUID, stage string) error
	MarkCompleted(ctx context.Context, id uuid.UUID, results json.RawMessage) error
}

// DocumentFinder resolves a document by id.
type DocumentFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*documents.Document, error)
}

// BlobStore is the slice of blob storage the pipeline needs.
type BlobStore interface {
	ReadAll(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
}

// Renderer turns a PDF into one data URI per page, ready for vision
// prompts. The production implementation shells out to ImageMagick via
// document-context; tests substitute canned pages.
type Renderer interface {
	RenderPages(ctx context.Context, pdf []byte) ([]string, error)
}

// Runtime bundles the dependencies that pipeline nodes require. It is
// constructed by the API module from Infrastructure and Domain systems.
type Runtime struct {
	Jobs      JobStore
	Documents DocumentFinder
	Storage   BlobStore
	Inference inference.System
	Risk      risk.Client
	Renderer  Renderer
	Pipeline  config.PipelineConfig
	Logger    *slog.Logger
}

func workerCount(n int) int {
	return max(min(runtime.NumCPU(), n), 1)
}
