package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/klauselwerk/klausel/internal/analysis"
	"github.com/klauselwerk/klausel/internal/compliance"
	"github.com/klauselwerk/klausel/internal/corpus"
	"github.com/klauselwerk/klausel/internal/documents"
	"github.com/klauselwerk/klausel/internal/inference"
	"github.com/klauselwerk/klausel/internal/jobs"
	"github.com/klauselwerk/klausel/internal/risk"
	"github.com/klauselwerk/klausel/pkg/lifecycle"
)

// Domain holds all domain systems that comprise the API, plus the
// launcher that starts pipelines for newly created jobs.
type Domain struct {
	Documents documents.System
	Jobs      jobs.System
	Launcher  jobs.Launcher
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	cfg := runtime.Config

	docsSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	jobsSystem := jobs.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	inferenceSystem := inference.New(cfg.Agent.AgentConfig, runtime.Logger)

	var riskClient risk.Client
	if cfg.Risk.Enabled() {
		riskClient = risk.New(cfg.Risk.BaseURL, cfg.Risk.TimeoutDuration(), runtime.Logger)
	}

	analysisRuntime := &analysis.Runtime{
		Jobs:      jobsSystem,
		Documents: docsSystem,
		Storage:   runtime.Storage,
		Inference: inferenceSystem,
		Risk:      riskClient,
		Renderer:  analysis.NewRenderer(),
		Pipeline:  cfg.Pipeline,
		Logger:    runtime.Logger,
	}

	complianceRuntime := &compliance.Runtime{
		Jobs:      jobsSystem,
		Storage:   runtime.Storage,
		Inference: inferenceSystem,
		Catalog: func(ctx context.Context, sources []string) (*corpus.Catalog, error) {
			return corpus.Load(ctx, runtime.Storage, sources, runtime.Logger)
		},
		Pipeline:   cfg.Pipeline,
		Compliance: cfg.Compliance,
		Logger:     runtime.Logger,
	}

	return &Domain{
		Documents: docsSystem,
		Jobs:      jobsSystem,
		Launcher: &launcher{
			lifecycle:  runtime.Lifecycle,
			analysis:   analysisRuntime,
			compliance: complianceRuntime,
			logger:     runtime.Logger,
		},
	}
}

// launcher starts pipelines on the lifecycle context so they survive
// the originating HTTP request and stop on service shutdown.
type launcher struct {
	lifecycle  *lifecycle.Coordinator
	analysis   *analysis.Runtime
	compliance *compliance.Runtime
	logger     *slog.Logger
}

func (l *launcher) Launch(job *jobs.Job) error {
	ctx := l.lifecycle.Context()

	switch job.Kind {
	case jobs.KindAnalysis:
		go analysis.Execute(ctx, l.analysis, job.ID, job.DocumentID)
	case jobs.KindCompliance:
		go compliance.Execute(ctx, l.compliance, job.ID, job.DocumentID)
	default:
		return fmt.Errorf("%w: %s", jobs.ErrInvalidKind, job.Kind)
	}

	l.logger.Info("pipeline launched", "job", job.ID, "kind", job.Kind)
	return nil
}
