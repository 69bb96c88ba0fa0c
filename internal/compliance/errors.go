package compliance

import "errors"

// Pipeline errors for the compliance workflow.
var (
	ErrConfiguration  = errors.New("compliance configuration error")
	ErrNoAnalysis     = errors.New("no completed analysis for document")
	ErrIdentifyFailed = errors.New("article identification failed")
	ErrDeepFailed     = errors.New("deep analysis failed")
	ErrFinalizeFailed = errors.New("finalization failed")
)
