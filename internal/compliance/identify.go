package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/klauselwerk/klausel/internal/corpus"
	"github.com/klauselwerk/klausel/internal/inference"
	"github.com/klauselwerk/klausel/internal/prompts"
	"github.com/klauselwerk/klausel/pkg/batching"
	"github.com/klauselwerk/klausel/pkg/steps"
)

type identifyResponse struct {
	Results []Phase1Result `json:"results"`
}

// IdentifyNode returns a state node for the identification phase. The
// contract blocks are split into fixed-size batches; batches are
// grouped into waves up to the configured parallelism, and each wave is
// one durable step. Every batch is checked against the same selection
// of statute articles, so a replayed wave sees identical inputs.
func IdentifyNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		cs, err := extractState(s)
		if err != nil {
			return s, fmt.Errorf("identify: %w", err)
		}

		if err := r.rt.Jobs.SetStage(ctx, r.jobID, prompts.StageIdentifyingArticles); err != nil {
			return s, fmt.Errorf("identify: set stage: %w", err)
		}

		results, err := r.identifyAll(ctx, cs)
		if err != nil {
			return s, fmt.Errorf("identify: %w: %w", ErrIdentifyFailed, err)
		}

		cs.Phase1 = results
		r.deriveTasks(cs)

		r.rt.Logger.InfoContext(
			ctx, "identify node complete",
			"blocks", len(cs.Phase1),
			"tasks", len(cs.Tasks),
			"skipped_articles", cs.Skipped,
		)

		s = s.Set(KeyState, *cs)
		return s, nil
	})
}

func (r *run) identifyAll(ctx context.Context, cs *State) ([]Phase1Result, error) {
	articles := renderArticles(r.selectArticles(ctx, cs.Catalog))

	batches := batching.Chunk(cs.Blocks, r.rt.Compliance.BlocksPerBatch)
	waves := batching.Chunk(batches, r.rt.Compliance.MaxParallelIdentify)

	var results []Phase1Result

	for w, wave := range waves {
		name := fmt.Sprintf("identify-wave-%d", w)

		waveResults, err := steps.RunWave(ctx, r.exec, name, func(ctx context.Context) ([]Phase1Result, error) {
			out := make([][]Phase1Result, len(wave))

			g, gctx := errgroup.WithContext(ctx)
			for i, batch := range wave {
				g.Go(func() error {
					batchResults, err := r.identifyBatch(gctx, articles, batch)
					if err != nil {
						return err
					}
					out[i] = batchResults
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}

			var flat []Phase1Result
			for _, batch := range out {
				flat = append(flat, batch...)
			}
			return flat, nil
		})
		if err != nil {
			return nil, err
		}

		results = append(results, waveResults...)

		if err := r.tracker.Advance(ctx, spanIdentify, w+1, len(waves)); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// selectArticles picks the statute articles offered to every
// identification batch. The catalog is pre-batched by token cost, then
// batches are consumed in order article by article until the next whole
// article would exceed the legal context budget.
func (r *run) selectArticles(ctx context.Context, catalog *corpus.Catalog) []corpus.Article {
	batches := batching.ByCost(catalog.Articles(), func(a corpus.Article) int {
		return batching.TokenCost(articleRef(a))
	}, r.rt.Compliance.ArticleBatchBudget)

	var selected []corpus.Article
	spent := 0

	for _, batch := range batches {
		for _, a := range batch {
			cost := batching.TokenCost(articleRef(a))
			if spent+cost > r.rt.Compliance.LegalContextBudget {
				r.rt.Logger.WarnContext(
					ctx, "statute catalog exceeds legal context budget",
					"selected", len(selected),
					"total", len(catalog.Articles()),
				)
				return selected
			}
			selected = append(selected, a)
			spent += cost
		}
	}

	return selected
}

// identifyBatch runs one identification prompt over a batch of blocks.
// A batch whose model output cannot be structured falls back to a
// no-violation result per block; the remaining batches still run.
func (r *run) identifyBatch(ctx context.Context, articles string, blocks []Block) ([]Phase1Result, error) {
	rendered := renderBlocks(blocks)
	if cost := batching.TokenCost(rendered); cost > r.rt.Compliance.BlockTextBudget {
		r.rt.Logger.WarnContext(
			ctx, "block batch exceeds text budget",
			"cost", cost,
			"budget", r.rt.Compliance.BlockTextBudget,
		)
	}

	prompt := prompts.IdentifyArticles(articles, rendered)

	payload, err := r.rt.Inference.GenerateStructured(ctx, prompt, prompts.IdentifySchema)
	if err != nil {
		if errors.Is(err, inference.ErrStructuring) {
			r.rt.Logger.WarnContext(ctx, "identification output failed structuring, recording no violations for batch")
			return noViolations(blocks), nil
		}
		return nil, err
	}

	var resp identifyResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode identification response: %w", err)
	}

	return r.normalizeResults(ctx, blocks, resp.Results), nil
}

// normalizeResults pins the model output to exactly one result per
// block, in block order. Results citing unknown anchors are dropped
// with a warning; blocks the model skipped default to no violation.
func (r *run) normalizeResults(ctx context.Context, blocks []Block, raw []Phase1Result) []Phase1Result {
	byAnchor := make(map[string]Phase1Result, len(raw))
	known := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		known[b.AnchorID] = true
	}

	for _, res := range raw {
		if !known[res.AnchorID] {
			r.rt.Logger.WarnContext(ctx, "identification result for unknown anchor", "anchor", res.AnchorID)
			continue
		}
		byAnchor[res.AnchorID] = res
	}

	results := make([]Phase1Result, len(blocks))
	for i, b := range blocks {
		res, ok := byAnchor[b.AnchorID]
		if !ok {
			results[i] = Phase1Result{AnchorID: b.AnchorID, Articles: []ArticleRef{}}
			continue
		}
		if res.Articles == nil {
			res.Articles = []ArticleRef{}
		}
		results[i] = res
	}

	return results
}

func noViolations(blocks []Block) []Phase1Result {
	results := make([]Phase1Result, len(blocks))
	for i, b := range blocks {
		results[i] = Phase1Result{AnchorID: b.AnchorID, Articles: []ArticleRef{}}
	}
	return results
}

// deriveTasks expands every block flagged for deep review into one task
// per cited article. Citations of disabled sources are dropped and
// counted; resolution against the catalog happens in the deep phase.
func (r *run) deriveTasks(cs *State) {
	for _, res := range cs.Phase1 {
		if !res.NeedsDeepReview {
			continue
		}
		for _, ref := range res.Articles {
			if !cs.Catalog.Enabled(ref.Source) {
				cs.Skipped++
				r.rt.Logger.Warn("citation of disabled source", "source", ref.Source, "name", ref.ArticleName, "anchor", res.AnchorID)
				continue
			}
			cs.Tasks = append(cs.Tasks, Task{AnchorID: res.AnchorID, Article: ref})
		}
	}
}

func renderArticles(articles []corpus.Article) string {
	var b strings.Builder
	for _, a := range articles {
		b.WriteString(articleRef(a))
		b.WriteString("\n")
	}
	return b.String()
}

func articleRef(a corpus.Article) string {
	if a.Title == "" {
		return a.Ref()
	}
	return a.Ref() + ": " + a.Title
}
