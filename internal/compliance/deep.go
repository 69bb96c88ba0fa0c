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

type deepResponse struct {
	Severity         string `json:"severity"`
	ViolationDetails string `json:"violation_details"`
	Recommendation   string `json:"recommendation"`
}

// DeepAnalyzeNode returns a state node for the deep analysis phase.
// Tasks are grouped into waves up to the configured parallelism, and
// each wave is one durable step. A task whose cited article does not
// resolve against the catalog yields no verdict and is counted as
// unresolved. Unlike identification, a structuring failure here fails
// the job: a verdict that cannot be decoded is not safely skippable.
func DeepAnalyzeNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		cs, err := extractState(s)
		if err != nil {
			return s, fmt.Errorf("deep-analyze: %w", err)
		}

		if err := r.rt.Jobs.SetStage(ctx, r.jobID, prompts.StageDeepAnalysis); err != nil {
			return s, fmt.Errorf("deep-analyze: set stage: %w", err)
		}

		waves := batching.Chunk(cs.Tasks, r.rt.Compliance.MaxParallelDeep)

		var verdicts []*Phase2Result

		for w, wave := range waves {
			name := fmt.Sprintf("deep-wave-%d", w)

			waveVerdicts, err := steps.RunWave(ctx, r.exec, name, func(ctx context.Context) ([]*Phase2Result, error) {
				out := make([]*Phase2Result, len(wave))

				g, gctx := errgroup.WithContext(ctx)
				for i, task := range wave {
					g.Go(func() error {
						verdict, err := r.analyzeTask(gctx, cs, task)
						if err != nil {
							return err
						}
						out[i] = verdict
						return nil
					})
				}
				if err := g.Wait(); err != nil {
					return nil, err
				}

				return out, nil
			})
			if err != nil {
				return s, fmt.Errorf("deep-analyze: %w: %w", ErrDeepFailed, err)
			}

			verdicts = append(verdicts, waveVerdicts...)

			if err := r.tracker.Advance(ctx, spanDeep, w+1, len(waves)); err != nil {
				return s, fmt.Errorf("deep-analyze: advance progress: %w", err)
			}
		}

		for _, v := range verdicts {
			if v == nil {
				cs.Unresolved++
				continue
			}
			cs.Phase2 = append(cs.Phase2, *v)
		}

		r.rt.Logger.InfoContext(
			ctx, "deep-analyze node complete",
			"verdicts", len(cs.Phase2),
			"unresolved_articles", cs.Unresolved,
		)

		s = s.Set(KeyState, *cs)
		return s, nil
	})
}

// analyzeTask runs the deep prompt for one (clause, article) pair. A
// nil result with a nil error means the cited article could not be
// resolved; the caller counts it instead of failing the stage.
func (r *run) analyzeTask(ctx context.Context, cs *State, task Task) (*Phase2Result, error) {
	article, err := cs.Catalog.Lookup(task.Article.Source, task.Article.ArticleName)
	if err != nil {
		if errors.Is(err, corpus.ErrArticleNotFound) || errors.Is(err, corpus.ErrSourceDisabled) {
			r.rt.Logger.Warn("unresolvable article citation", "source", task.Article.Source, "name", task.Article.ArticleName, "error", err)
			return nil, nil
		}
		return nil, err
	}

	block, ok := blockByAnchor(cs.Blocks, task.AnchorID)
	if !ok {
		return nil, steps.Permanent(fmt.Errorf("no block for anchor %s", task.AnchorID))
	}

	prompt := prompts.DeepAnalyze(
		article.Ref(),
		article.Body,
		legalContext(cs.Catalog, *article, r.rt.Compliance.LegalContextBudget),
		renderBlocks([]Block{block}),
	)

	payload, err := r.rt.Inference.GenerateStructured(ctx, prompt, prompts.DeepSchema)
	if err != nil {
		if errors.Is(err, inference.ErrStructuring) {
			return nil, steps.Permanent(err)
		}
		return nil, err
	}

	var resp deepResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, steps.Permanent(fmt.Errorf("decode deep analysis response: %w", err))
	}

	if !ValidSeverity(resp.Severity) {
		return nil, steps.Permanent(fmt.Errorf("unknown deep analysis severity %q", resp.Severity))
	}

	return &Phase2Result{
		AnchorID:         task.AnchorID,
		ArticleName:      article.Name,
		Source:           article.Source,
		Severity:         resp.Severity,
		ViolationDetails: resp.ViolationDetails,
		Recommendation:   resp.Recommendation,
	}, nil
}

func blockByAnchor(blocks []Block, anchor string) (Block, bool) {
	for _, b := range blocks {
		if b.AnchorID == anchor {
			return b, true
		}
	}
	return Block{}, false
}

// legalContext gathers articles of the same source nearest to the
// target in catalog order, stopping once the token budget is spent.
func legalContext(catalog *corpus.Catalog, target corpus.Article, budget int) string {
	articles := catalog.Articles()

	center := -1
	for i, a := range articles {
		if a.Source == target.Source && a.Name == target.Name {
			center = i
			break
		}
	}
	if center < 0 {
		return ""
	}

	var parts []string
	spent := 0

	for offset := 1; ; offset++ {
		candidates := []int{center - offset, center + offset}
		added := false

		for _, i := range candidates {
			if i < 0 || i >= len(articles) || articles[i].Source != target.Source {
				continue
			}

			text := articleRef(articles[i]) + "\n" + articles[i].Body
			cost := batching.TokenCost(text)
			if spent+cost > budget {
				continue
			}

			parts = append(parts, text)
			spent += cost
			added = true
		}

		if !added {
			break
		}
	}

	return strings.Join(parts, "\n\n")
}

// renderBlocks formats blocks with their anchors for a prompt.
func renderBlocks(blocks []Block) string {
	var b strings.Builder

	for _, block := range blocks {
		b.WriteString("[" + block.AnchorID + "]")
		if block.ParagraphLabel != "" {
			b.WriteString(" (" + block.ParagraphLabel + ")")
		}
		b.WriteString(" " + block.Content + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
