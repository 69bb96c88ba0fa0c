package compliance

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/klauselwerk/klausel/internal/config"
	"github.com/klauselwerk/klausel/internal/corpus"
	"github.com/klauselwerk/klausel/internal/inference"
	"github.com/klauselwerk/klausel/pkg/guard"
	"github.com/klauselwerk/klausel/pkg/progress"
	"github.com/klauselwerk/klausel/pkg/steps"
)

// JobStore is the slice of the job system this pipeline needs.
type JobStore interface {
	steps.Store
	progress.Store
	guard.Store
	MarkInProgress(ctx context.Context, id uuid.UUID) error
	SetStage(ctx context.Context, id uuid.UUID, stage string) error
	MarkCompleted(ctx context.Context, id uuid.UUID, results json.RawMessage) error
}

// BlobStore reads the block snapshot and corpus files.
type BlobStore interface {
	ReadAll(ctx context.Context, key string) ([]byte, error)
}

// CatalogLoader loads the enabled statute corpora. The production
// implementation is corpus.Load against blob storage.
type CatalogLoader func(ctx context.Context, sources []string) (*corpus.Catalog, error)

// Runtime bundles the dependencies that pipeline nodes require. It is
// constructed by the API module from Infrastructure and Domain systems.
type Runtime struct {
	Jobs       JobStore
	Storage    BlobStore
	Inference  inference.System
	Catalog    CatalogLoader
	Pipeline   config.PipelineConfig
	Compliance config.ComplianceConfig
	Logger     *slog.Logger
}
