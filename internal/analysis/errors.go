package analysis

import "errors"

// Pipeline errors for the document analysis workflow.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrRenderFailed     = errors.New("page rendering failed")
	ErrParseFailed      = errors.New("contract parsing failed")
	ErrReviewFailed     = errors.New("clause review failed")
	ErrSummarizeFailed  = errors.New("summarization failed")
	ErrFinalizeFailed   = errors.New("finalization failed")
)
