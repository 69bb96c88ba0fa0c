package analysis

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
const KeyState = "analysis_state"

// Progress spans per stage. Finalize jumps to 100 on completion.
var (
	spanParse     = progress.Span{Lo: 0, Hi: 50}
	spanReview    = progress.Span{Lo: 50, Hi: 90}
	spanSummarize = progress.Span{Lo: 90, Hi: 95}
)

type run struct {
	rt      *Runtime
	exec    *steps.Executor
	tracker *progress.Tracker
	jobID   uuid.UUID
}

// Execute runs the analysis pipeline for one job. Failures and panics
// are recorded on the job by the guard; Execute itself never returns an
// error to the caller.
func Execute(ctx context.Context, rt *Runtime, jobID, documentID uuid.UUID) {
	logger := rt.Logger.With("pipeline", "analysis", "job", jobID)

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
	cfg := gaoconfig.DefaultGraphConfig("contract-analysis")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	if err := graph.AddNode("init", InitNode(r)); err != nil {
		return nil, err
	}
	if err := graph.AddNode("parse", ParseNode(r)); err != nil {
		return nil, err
	}
	if err := graph.AddNode("review", ReviewNode(r)); err != nil {
		return nil, err
	}
	if err := graph.AddNode("summarize", SummarizeNode(r)); err != nil {
		return nil, err
	}
	if err := graph.AddNode("finalize", FinalizeNode(r)); err != nil {
		return nil, err
	}

	// init → parse (unconditional)
	if err := graph.AddEdge("init", "parse", nil); err != nil {
		return nil, err
	}

	// parse → review (when any blocks were extracted)
	if err := graph.AddEdge("parse", "review", hasBlocks); err != nil {
		return nil, err
	}

	// parse → finalize (empty document)
	if err := graph.AddEdge("parse", "finalize", state.Not(hasBlocks)); err != nil {
		return nil, err
	}

	if err := graph.AddEdge("review", "summarize", nil); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("summarize", "finalize", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("init"); err != nil {
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

	as, ok := val.(State)
	if !ok {
		return nil, fmt.Errorf("%s is not State", KeyState)
	}

	return &as, nil
}

func hasBlocks(s state.State) bool {
	as, err := extractState(s)
	if err != nil {
		return false
	}
	return len(as.Blocks) > 0
}
