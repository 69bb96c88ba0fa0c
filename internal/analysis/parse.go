package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/klauselwerk/klausel/internal/prompts"
	"github.com/klauselwerk/klausel/pkg/batching"
	"github.com/klauselwerk/klausel/pkg/formatting"
	"github.com/klauselwerk/klausel/pkg/steps"
)

type parseResponse struct {
	Blocks []struct {
		ParagraphLabel string `json:"paragraph_label"`
		Content        string `json:"content"`
	} `json:"blocks"`
}

// ParseNode returns a state node that extracts contract blocks from the
// rendered pages. Pages are processed in waves; each wave is a durable
// step, so a resumed job replays completed waves from the store. Within
// a wave, pages run in parallel and each page gets its own agent.
func ParseNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		as, err := extractState(s)
		if err != nil {
			return s, fmt.Errorf("parse: %w", err)
		}

		if err := r.rt.Jobs.SetStage(ctx, r.jobID, prompts.StageParsing); err != nil {
			return s, fmt.Errorf("parse: set stage: %w", err)
		}

		pageNumbers := make([]int, len(as.PageImages))
		for i := range as.PageImages {
			pageNumbers[i] = i + 1
		}

		waves := batching.Chunk(pageNumbers, r.rt.Pipeline.PagesPerWave)
		total := len(as.PageImages)
		completed := 0

		var blocks []ContractBlock
		for w, wave := range waves {
			name := fmt.Sprintf("parse-wave-%d", w)

			waveBlocks, err := steps.RunWave(ctx, r.exec, name, func(ctx context.Context) ([]ContractBlock, error) {
				return r.parseWave(ctx, as, wave)
			})
			if err != nil {
				return s, fmt.Errorf("parse: %w: %w", ErrParseFailed, err)
			}

			blocks = append(blocks, waveBlocks...)
			completed += len(wave)

			if err := r.tracker.Advance(ctx, spanParse, completed, total); err != nil {
				return s, fmt.Errorf("parse: advance progress: %w", err)
			}
		}

		r.rt.Logger.InfoContext(
			ctx, "parse node complete",
			"page_count", total,
			"block_count", len(blocks),
		)

		as.Blocks = blocks
		s = s.Set(KeyState, *as)
		return s, nil
	})
}

// parseWave extracts blocks for one wave of pages. A page whose model
// output cannot be structured yields no blocks and a warning instead of
// failing the wave; the rest of the document remains reviewable.
func (r *run) parseWave(ctx context.Context, as *State, pages []int) ([]ContractBlock, error) {
	perPage := make([][]ContractBlock, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(len(pages)))

	for i, pageNum := range pages {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			uri := as.PageImages[pageNum-1]
			content, err := r.rt.Inference.GenerateVision(gctx, prompts.ParsePage(pageNum), []string{uri})
			if err != nil {
				return fmt.Errorf("page %d: %w", pageNum, err)
			}

			parsed, ok := structurePage(content)
			if !ok {
				r.rt.Logger.WarnContext(gctx, "page output failed structuring, skipping", "page", pageNum)
				return nil
			}

			pageBlocks := make([]ContractBlock, len(parsed.Blocks))
			for j, b := range parsed.Blocks {
				pageBlocks[j] = ContractBlock{
					PageNumber:     pageNum,
					ParagraphLabel: b.ParagraphLabel,
					Content:        b.Content,
					AnchorID:       AnchorID(pageNum, j),
				}
			}

			perPage[i] = pageBlocks
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var blocks []ContractBlock
	for _, pageBlocks := range perPage {
		blocks = append(blocks, pageBlocks...)
	}
	return blocks, nil
}

func structurePage(content string) (*parseResponse, bool) {
	payload, err := formatting.ExtractJSON(content)
	if err != nil {
		return nil, false
	}

	if err := prompts.ParseSchema.Validate(payload); err != nil {
		return nil, false
	}

	var parsed parseResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, false
	}

	return &parsed, true
}
