package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/klauselwerk/klausel/internal/inference"
	"github.com/klauselwerk/klausel/internal/prompts"
	"github.com/klauselwerk/klausel/pkg/steps"
)

// SummarizeNode returns a state node that rolls the clause reviews up
// into a document summary. The summary is a single durable step. When
// the model cannot produce a valid summary payload, a summary computed
// from the finding counts stands in rather than failing the job.
func SummarizeNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		as, err := extractState(s)
		if err != nil {
			return s, fmt.Errorf("summarize: %w", err)
		}

		if err := r.rt.Jobs.SetStage(ctx, r.jobID, prompts.StageSummarizing); err != nil {
			return s, fmt.Errorf("summarize: set stage: %w", err)
		}

		summary, err := steps.Run(ctx, r.exec, "summarize", func(ctx context.Context) (Summary, error) {
			return r.summarize(ctx, as)
		})
		if err != nil {
			return s, fmt.Errorf("summarize: %w: %w", ErrSummarizeFailed, err)
		}

		if err := r.tracker.Advance(ctx, spanSummarize, 1, 1); err != nil {
			return s, fmt.Errorf("summarize: advance progress: %w", err)
		}

		r.rt.Logger.InfoContext(
			ctx, "summarize node complete",
			"overall", summary.OverallEvaluation,
			"concerns", len(summary.Concerns),
		)

		as.Summary = summary
		s = s.Set(KeyState, *as)
		return s, nil
	})
}

func (r *run) summarize(ctx context.Context, as *State) (Summary, error) {
	prompt := prompts.Summarize(renderFindings(as))

	payload, err := r.rt.Inference.GenerateStructured(ctx, prompt, prompts.SummarySchema)
	if errors.Is(err, inference.ErrStructuring) {
		r.rt.Logger.WarnContext(ctx, "summary output failed structuring, using computed fallback")
		return fallbackSummary(as.Reviews), nil
	}
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return Summary{}, fmt.Errorf("decode summary: %w", err)
	}

	normalizeSummary(&summary, as.Reviews)
	return summary, nil
}

// normalizeSummary backfills fields the model got wrong: an unknown
// overall severity is recomputed from the reviews and the concern list
// is capped at the top finding count.
func normalizeSummary(summary *Summary, reviews []Review) {
	if !ValidSeverity(summary.OverallEvaluation) {
		summary.OverallEvaluation = OverallSeverity(reviews)
	}
	if len(summary.Concerns) > topFindingCount {
		summary.Concerns = summary.Concerns[:topFindingCount]
	}
	if summary.Concerns == nil {
		summary.Concerns = []Concern{}
	}
}

func renderFindings(as *State) string {
	var b strings.Builder

	for _, review := range as.Reviews {
		if review.Severity == SeveritySafe {
			continue
		}

		block := as.Blocks[review.BlockIndex]
		fmt.Fprintf(&b, "[%s] %s", review.AnchorID, review.Severity)
		if block.ParagraphLabel != "" {
			fmt.Fprintf(&b, " (%s)", block.ParagraphLabel)
		}
		fmt.Fprintf(&b, ": %s\n", review.Comment)
	}

	if b.Len() == 0 {
		return "No risky clauses were found."
	}
	return b.String()
}

func fallbackSummary(reviews []Review) Summary {
	counts := map[string]int{}
	for _, review := range reviews {
		counts[review.Severity]++
	}

	summary := Summary{
		Title:             "Vertragsprüfung",
		OverallEvaluation: OverallSeverity(reviews),
		Narrative: fmt.Sprintf(
			"Automated summary unavailable. Clause review found %d high, %d elevated and %d medium risk clauses across %d reviewed clauses.",
			counts[SeverityHigh], counts[SeverityElevated], counts[SeverityMedium], len(reviews),
		),
		Concerns: []Concern{},
	}

	for _, finding := range TopFindings(reviews, topFindingCount) {
		summary.Concerns = append(summary.Concerns, Concern{
			AnchorID: finding.AnchorID,
			Severity: finding.Severity,
			Note:     finding.Comment,
		})
	}

	return summary
}
