package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

const topFindingCount = 3

// BlocksKey is the blob key for the block snapshot a completed analysis
// leaves behind. The compliance pipeline reads it instead of re-parsing
// the document.
func BlocksKey(documentID uuid.UUID) string {
	return fmt.Sprintf("analyses/%s/blocks.json", documentID)
}

// FinalizeNode returns a state node that assembles the final result,
// snapshots the extracted blocks to blob storage for downstream
// compliance runs, and completes the job.
func FinalizeNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		as, err := extractState(s)
		if err != nil {
			return s, fmt.Errorf("finalize: %w", err)
		}

		extractTitle(&as.Summary)

		result := Result{
			DocumentID:  as.DocumentID,
			Filename:    as.Filename,
			PageCount:   len(as.PageImages),
			Blocks:      as.Blocks,
			Reviews:     as.Reviews,
			Summary:     as.Summary,
			TopFindings: TopFindings(as.Reviews, topFindingCount),
			CompletedAt: time.Now().UTC(),
		}

		if err := r.snapshotBlocks(ctx, &result); err != nil {
			return s, fmt.Errorf("finalize: %w: %w", ErrFinalizeFailed, err)
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return s, fmt.Errorf("finalize: %w: encode result: %w", ErrFinalizeFailed, err)
		}

		if err := r.rt.Jobs.MarkCompleted(ctx, r.jobID, payload); err != nil {
			return s, fmt.Errorf("finalize: %w: %w", ErrFinalizeFailed, err)
		}

		r.rt.Logger.InfoContext(
			ctx, "analysis complete",
			"document_id", as.DocumentID,
			"blocks", len(as.Blocks),
			"top_findings", len(result.TopFindings),
		)

		return s, nil
	})
}

// extractTitle pulls a leading markdown heading out of the narrative
// when the model embedded the title there instead of filling the title
// field.
func extractTitle(summary *Summary) {
	if summary.Title != "" {
		return
	}

	narrative := strings.TrimSpace(summary.Narrative)
	if !strings.HasPrefix(narrative, "#") {
		return
	}

	line, rest, _ := strings.Cut(narrative, "\n")
	title := strings.TrimSpace(strings.TrimLeft(line, "# "))
	if title == "" {
		return
	}

	summary.Title = title
	summary.Narrative = strings.TrimSpace(rest)
}

func (r *run) snapshotBlocks(ctx context.Context, result *Result) error {
	blocks := result.Blocks
	if blocks == nil {
		blocks = []ContractBlock{}
	}

	data, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("encode block snapshot: %w", err)
	}

	key := BlocksKey(result.DocumentID)
	if err := r.rt.Storage.Upload(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("upload block snapshot: %w", err)
	}

	return nil
}
