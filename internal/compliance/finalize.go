package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/klauselwerk/klausel/internal/prompts"
)

// FinalizeNode returns a state node that aggregates both phases into
// the summary counters, assembles the final result, and completes the
// job.
func FinalizeNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		cs, err := extractState(s)
		if err != nil {
			return s, fmt.Errorf("finalize: %w", err)
		}

		if err := r.rt.Jobs.SetStage(ctx, r.jobID, prompts.StageComplianceCompleted); err != nil {
			return s, fmt.Errorf("finalize: set stage: %w", err)
		}

		phase1 := cs.Phase1
		if phase1 == nil {
			phase1 = []Phase1Result{}
		}
		phase2 := cs.Phase2
		if phase2 == nil {
			phase2 = []Phase2Result{}
		}

		result := Result{
			DocumentID:         cs.DocumentID,
			Sources:            r.rt.Compliance.Sources,
			Phase1:             phase1,
			Phase2:             phase2,
			Summary:            summarize(cs),
			SkippedArticles:    cs.Skipped,
			UnresolvedArticles: cs.Unresolved,
			CompletedAt:        time.Now().UTC(),
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return s, fmt.Errorf("finalize: %w: encode result: %w", ErrFinalizeFailed, err)
		}

		if err := r.rt.Jobs.MarkCompleted(ctx, r.jobID, payload); err != nil {
			return s, fmt.Errorf("finalize: %w: %w", ErrFinalizeFailed, err)
		}

		r.rt.Logger.InfoContext(
			ctx, "compliance complete",
			"document_id", cs.DocumentID,
			"blocks_with_violations", result.Summary.BlocksWithViolations,
			"critical_violations", result.Summary.CriticalViolations,
		)

		return s, nil
	})
}

func summarize(cs *State) Summary {
	summary := Summary{TotalBlocks: len(cs.Blocks)}

	for _, res := range cs.Phase1 {
		if res.HasViolation {
			summary.BlocksWithViolations++
		}
	}

	for _, verdict := range cs.Phase2 {
		switch verdict.Severity {
		case SeverityCritical:
			summary.CriticalViolations++
		case SeverityModerate:
			summary.ModerateViolations++
		case SeverityMinor:
			summary.MinorViolations++
		}
	}

	return summary
}
