package compliance

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/klauselwerk/klausel/pkg/guard"
	"github.com/klauselwerk/klausel/pkg/progress"
	"github.com/klauselwerk/klausel/pkg/steps"
)

// KeyState names the pipeline state entry in the graph state bag.
const KeyState = "compliance_state"

// Progress spans per stage. Setup claims the first slice so a job shows
// movement while corpora load; finalize jumps to 100 on completion.
var (
	spanSetup    = progress.Span{Lo: 0, Hi: 10}
	spanIdentify = progress.Span{Lo: 10, Hi: 50}
	spanDeep     = progress.Span{Lo: 50, Hi: 90}
)

type run struct {
	rt      *Runtime
	exec    *steps.Executor
	tracker *progress.Tracker
	jobID   uuid.UUID
}

// Execute runs the compliance pipeline for one job. Failures and panics
// are recorded on the job by the guard; Execute itself never returns an
// error to the caller.
func Execute(ctx context.Context, rt *Runtime, jobID, documentID uuid.UUID) {
	logger := rt.Logger.With("pipeline", "compliance", "job", jobID)

	guard.Run(ctx, rt.Jobs, jobID, logger, func(ctx context.Context) error {
		if err := rt.Jobs.MarkInProgress(ctx, jobID); err != nil {
			return fmt.Errorf("mark in progress: %w", err)
		}

		r := &run{
			rt: rt,
			exec: steps.NewExecutor(rt.Jobs, jobID, steps.Config{
				Timeout:     rt.Pipeline.StepTimeoutDuration(),
				WaveTimeout: rt.Pipeline.WaveTimeoutDuration(),
				MaxAttempts: rt.Pipeline.MaxAttempts,
				RetryDelay:  rt.Pipeline.RetryDelayDuration(),
			}, logger),
			tracker: progress.NewTracker(rt.Jobs, jobID, logger),
			jobID:   jobID,
		}

		graph, err := buildGraph(r)
		if err != nil {
			return fmt.Errorf("build graph: %w", err)
		}

		initialState := state.New(nil)
		initialState = initialState.Set(KeyState, State{DocumentID: documentID})

		if _, err := graph.Execute(ctx, initialState); err != nil {
			return fmt.Errorf("execute graph: %w", err)
		}

		return nil
	})
}

func buildGraph(r *run) (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("contract-compliance")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	if err := graph.AddNode("setup", SetupNode(r)); err != nil {
		return nil, err
	}
	if err := graph.AddNode("identify", IdentifyNode(r)); err != nil {
		return nil, err
	}
	if err := graph.AddNode("deep", DeepAnalyzeNode(r)); err != nil {
		return nil, err
	}
	if err := graph.AddNode("finalize", FinalizeNode(r)); err != nil {
		return nil, err
	}

	// setup → identify (unconditional)
	if err := graph.AddEdge("setup", "identify", nil); err != nil {
		return nil, err
	}

	// identify → deep (when any articles were implicated)
	if err := graph.AddEdge("identify", "deep", hasTasks); err != nil {
		return nil, err
	}

	// identify → finalize (nothing implicated)
	if err := graph.AddEdge("identify", "finalize", state.Not(hasTasks)); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("deep", "finalize", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("setup"); err != nil {
		return nil, err
	}
	if err := graph.SetExitPoint("finalize"); err != nil {
		return nil, err
	}

	return graph, nil
}

func extractState(s state.State) (*State, error) {
	val, ok := s.Get(KeyState)
	if !ok {
		return nil, fmt.Errorf("missing %s in state", KeyState)
	}

	cs, ok := val.(State)
	if !ok {
		return nil, fmt.Errorf("%s is not State", KeyState)
	}

	return &cs, nil
}

func hasTasks(s state.State) bool {
	cs, err := extractState(s)
	if err != nil {
		return false
	}
	return len(cs.Tasks) > 0
}
