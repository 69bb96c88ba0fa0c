package inference

import "errors"

// Domain errors for inference operations.
var (
	ErrAgentFailed = errors.New("agent request failed")
	ErrStructuring = errors.New("structured output failed validation")
)
