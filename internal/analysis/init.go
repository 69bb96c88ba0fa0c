package analysis

import (
	"context"
	"fmt"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// InitNode returns a state node that resolves the document, fetches the
// PDF from blob storage, and renders every page to a data URI. Rendering
// is cheap relative to inference and deterministic, so it is redone on
// replay rather than persisted as a step.
func InitNode(r *run) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		as, err := extractState(s)
		if err != nil {
			return s, fmt.Errorf("init: %w", err)
		}

		doc, err := r.rt.Documents.Find(ctx, as.DocumentID)
		if err != nil {
			return s, fmt.Errorf("init: %w: %w", ErrDocumentNotFound, err)
		}

		pdf, err := r.rt.Storage.ReadAll(ctx, doc.StorageKey)
		if err != nil {
			return s, fmt.Errorf("init: %w: download blob: %w", ErrRenderFailed, err)
		}

		pages, err := r.rt.Renderer.RenderPages(ctx, pdf)
		if err != nil {
			return s, fmt.Errorf("init: %w", err)
		}

		r.rt.Logger.InfoContext(
			ctx, "init node complete",
			"document_id", as.DocumentID,
			"page_count", len(pages),
		)

		as.Filename = doc.Filename
		as.PageImages = pages

		s = s.Set(KeyState, *as)
		return s, nil
	})
}
