package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/klauselwerk/klausel/internal/analysis"
	"github.com/klauselwerk/klausel/internal/corpus"
	"github.com/klauselwerk/klausel/internal/prompts"
)

// SetupNode returns a state node that loads the enabled statute corpora
// and the block snapshot left behind by the document's completed
// analysis. A misconfigured corpus set fails the job permanently before
// any inference work is scheduled.
func SetupNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		cs, err := extractState(s)
		if err != nil {
			return s, fmt.Errorf("setup: %w", err)
		}

		if err := r.rt.Jobs.SetStage(ctx, r.jobID, prompts.StageComplianceCheck); err != nil {
			return s, fmt.Errorf("setup: set stage: %w", err)
		}

		catalog, err := r.rt.Catalog(ctx, r.rt.Compliance.Sources)
		if errors.Is(err, corpus.ErrNoSourcesEnabled) {
			return s, fmt.Errorf("setup: %w: %w", ErrConfiguration, err)
		}
		if err != nil {
			return s, fmt.Errorf("setup: load corpora: %w", err)
		}

		blocks, err := r.loadBlocks(ctx, cs)
		if err != nil {
			return s, fmt.Errorf("setup: %w", err)
		}

		if err := r.tracker.Advance(ctx, spanSetup, 1, 1); err != nil {
			return s, fmt.Errorf("setup: advance progress: %w", err)
		}

		r.rt.Logger.InfoContext(
			ctx, "setup node complete",
			"document_id", cs.DocumentID,
			"articles", len(catalog.Articles()),
			"blocks", len(blocks),
		)

		cs.Catalog = catalog
		cs.Blocks = blocks

		s = s.Set(KeyState, *cs)
		return s, nil
	})
}

func (r *run) loadBlocks(ctx context.Context, cs *State) ([]Block, error) {
	data, err := r.rt.Storage.ReadAll(ctx, analysis.BlocksKey(cs.DocumentID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoAnalysis, err)
	}

	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("decode block snapshot: %w", err)
	}

	return blocks, nil
}
