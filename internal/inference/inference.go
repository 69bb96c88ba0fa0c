// Package inference wraps the language model agent behind a narrow
// interface so pipeline nodes can be tested against fakes. The real
// implementation creates one agent per call, which keeps concurrent
// waves from sharing conversation state.
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/JaimeStill/go-agents/pkg/format"

	"github.com/klauselwerk/klausel/pkg/formatting"
)

// System defines the inference operations the pipelines depend on.
type System interface {
	// GenerateText sends a text prompt and returns the raw completion.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateVision sends a prompt with page images encoded as data URIs.
	GenerateVision(ctx context.Context, prompt string, images []string) (string, error)

	// GenerateStructured sends a text prompt and validates the extracted
	// JSON payload against the given schema before returning it. A
	// payload that cannot be extracted or fails validation returns
	// ErrStructuring.
	GenerateStructured(ctx context.Context, prompt string, schema *Schema) (json.RawMessage, error)
}

type system struct {
	newAgent func() (agent.Agent, error)
	logger   *slog.Logger
}

// New creates an inference system backed by the configured agent.
func New(cfg gaconfig.AgentConfig, logger *slog.Logger) System {
	return &system{
		newAgent: func() (agent.Agent, error) {
			return agent.New(&cfg)
		},
		logger: logger.With("system", "inference"),
	}
}

func (s *system) GenerateText(ctx context.Context, prompt string) (string, error) {
	a, err := s.newAgent()
	if err != nil {
		return "", fmt.Errorf("%w: create agent: %w", ErrAgentFailed, err)
	}

	resp, err := a.Chat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: chat: %w", ErrAgentFailed, err)
	}

	return resp.Text(), nil
}

func (s *system) GenerateVision(ctx context.Context, prompt string, images []string) (string, error) {
	a, err := s.newAgent()
	if err != nil {
		return "", fmt.Errorf("%w: create agent: %w", ErrAgentFailed, err)
	}

	attachments := make([]format.Image, len(images))
	for i, uri := range images {
		attachments[i] = format.Image{URL: uri}
	}

	resp, err := a.Vision(ctx, prompt, attachments)
	if err != nil {
		return "", fmt.Errorf("%w: vision: %w", ErrAgentFailed, err)
	}

	return resp.Text(), nil
}

func (s *system) GenerateStructured(ctx context.Context, prompt string, schema *Schema) (json.RawMessage, error) {
	content, err := s.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	payload, err := formatting.ExtractJSON(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStructuring, err)
	}

	if err := schema.Validate(payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStructuring, err)
	}

	return payload, nil
}
