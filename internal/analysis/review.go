package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/klauselwerk/klausel/internal/prompts"
	"github.com/klauselwerk/klausel/pkg/batching"
	"github.com/klauselwerk/klausel/pkg/formatting"
	"github.com/klauselwerk/klausel/pkg/steps"
)

type reviewResponse struct {
	Severity string `json:"severity"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Comment  string `json:"comment"`
}

const fallbackComment = "automatic review unavailable for this clause, manual check required"

// ReviewNode returns a state node that reviews every contract block for
// risk. Blocks run in waves; each wave is a durable step. A block whose
// model output cannot be structured falls back to a medium severity
// review over the full clause so it surfaces for manual attention.
func ReviewNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		as, err := extractState(s)
		if err != nil {
			return s, fmt.Errorf("review: %w", err)
		}

		if err := r.rt.Jobs.SetStage(ctx, r.jobID, prompts.StageReviewing); err != nil {
			return s, fmt.Errorf("review: set stage: %w", err)
		}

		indices := make([]int, len(as.Blocks))
		for i := range as.Blocks {
			indices[i] = i
		}

		waves := batching.Chunk(indices, r.rt.Pipeline.ReviewWaveSize)
		total := len(as.Blocks)
		completed := 0

		var reviews []Review
		for w, wave := range waves {
			name := fmt.Sprintf("review-wave-%d", w)

			waveReviews, err := steps.RunWave(ctx, r.exec, name, func(ctx context.Context) ([]Review, error) {
				return r.reviewWave(ctx, as, wave)
			})
			if err != nil {
				return s, fmt.Errorf("review: %w: %w", ErrReviewFailed, err)
			}

			reviews = append(reviews, waveReviews...)
			completed += len(wave)

			if err := r.tracker.Advance(ctx, spanReview, completed, total); err != nil {
				return s, fmt.Errorf("review: advance progress: %w", err)
			}
		}

		r.rt.Logger.InfoContext(
			ctx, "review node complete",
			"block_count", total,
			"flagged", len(TopFindings(reviews, total)),
		)

		as.Reviews = reviews
		s = s.Set(KeyState, *as)
		return s, nil
	})
}

func (r *run) reviewWave(ctx context.Context, as *State, indices []int) ([]Review, error) {
	reviews := make([]Review, len(indices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(len(indices)))

	for i, blockIndex := range indices {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			review, err := r.reviewBlock(gctx, as, blockIndex)
			if err != nil {
				return err
			}

			reviews[i] = *review
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reviews, nil
}

func (r *run) reviewBlock(ctx context.Context, as *State, blockIndex int) (*Review, error) {
	block := as.Blocks[blockIndex]
	prompt := prompts.ReviewBlock(block.ParagraphLabel, block.Content, neighborContext(as.Blocks, blockIndex))

	content, err := r.rt.Inference.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", block.AnchorID, err)
	}

	length := utf8.RuneCountInString(block.Content)

	resp, ok := structureReview(content)
	if !ok {
		r.rt.Logger.WarnContext(ctx, "review output failed structuring, flagging block", "anchor", block.AnchorID)
		resp = &reviewResponse{
			Severity: SeverityMedium,
			Start:    0,
			End:      length,
			Comment:  fallbackComment,
		}
	}

	start, end := ClampSpan(resp.Severity, resp.Start, resp.End, length)

	review := &Review{
		BlockIndex: blockIndex,
		AnchorID:   block.AnchorID,
		Severity:   resp.Severity,
		Start:      start,
		End:        end,
		Comment:    resp.Comment,
	}

	r.assessRisk(ctx, review, prompt)
	return review, nil
}

// assessRisk attaches hallucination metrics when a risk sidecar is
// configured. Sidecar failures degrade to a review without metrics.
func (r *run) assessRisk(ctx context.Context, review *Review, prompt string) {
	if r.rt.Risk == nil {
		return
	}

	assessment, err := r.rt.Risk.Assess(ctx, prompt)
	if err != nil {
		r.rt.Logger.WarnContext(ctx, "risk assessment unavailable", "anchor", review.AnchorID, "error", err)
		return
	}

	review.Risk = assessment
}

// neighborContext renders the immediately surrounding blocks so the
// model can resolve cross references without the full document.
func neighborContext(blocks []ContractBlock, index int) string {
	var parts []string

	for _, i := range []int{index - 1, index + 1} {
		if i < 0 || i >= len(blocks) {
			continue
		}
		b := blocks[i]
		if b.ParagraphLabel != "" {
			parts = append(parts, b.ParagraphLabel+": "+b.Content)
		} else {
			parts = append(parts, b.Content)
		}
	}

	return strings.Join(parts, "\n\n")
}

func structureReview(content string) (*reviewResponse, bool) {
	payload, err := formatting.ExtractJSON(content)
	if err != nil {
		return nil, false
	}

	if err := prompts.ReviewSchema.Validate(payload); err != nil {
		return nil, false
	}

	var resp reviewResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, false
	}

	return &resp, true
}
