package inference

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/JaimeStill/go-agents/pkg/agent"
	"github.com/JaimeStill/go-agents/pkg/mock"
	"github.com/JaimeStill/go-agents/pkg/response"
)

func mockSystem(a agent.Agent) *system {
	return &system{
		newAgent: func() (agent.Agent, error) { return a, nil },
		logger:   slog.Default(),
	}
}

func TestGenerateTextReturnsResponseText(t *testing.T) {
	s := mockSystem(mock.NewSimpleChatAgent("test", "extracted clause text"))

	got, err := s.GenerateText(context.Background(), "analyze this")
	if err != nil {
		t.Fatalf("GenerateText() error = %v", err)
	}
	if got != "extracted clause text" {
		t.Errorf("GenerateText() = %q, want extracted clause text", got)
	}
}

func TestGenerateTextWrapsAgentFailure(t *testing.T) {
	s := mockSystem(mock.NewFailingAgent("test", errors.New("connection refused")))

	if _, err := s.GenerateText(context.Background(), "analyze this"); !errors.Is(err, ErrAgentFailed) {
		t.Fatalf("GenerateText() error = %v, want ErrAgentFailed", err)
	}
}

func TestGenerateVisionReturnsResponseText(t *testing.T) {
	a := mock.NewMockAgent(
		mock.WithVisionResponse(&response.Response{
			Role: "assistant",
			Content: []response.ContentBlock{
				response.TextBlock{Text: "page content"},
			},
		}, nil),
	)
	s := mockSystem(a)

	got, err := s.GenerateVision(context.Background(), "read this page", []string{"data:image/png;base64,AAAA"})
	if err != nil {
		t.Fatalf("GenerateVision() error = %v", err)
	}
	if got != "page content" {
		t.Errorf("GenerateVision() = %q, want page content", got)
	}
}

func TestGenerateStructuredValidatesPayload(t *testing.T) {
	schema := MustSchema("verdict", `{
		"type": "object",
		"properties": {"verdict": {"type": "string"}},
		"required": ["verdict"],
		"additionalProperties": false
	}`)

	s := mockSystem(mock.NewSimpleChatAgent("test", "```json\n{\"verdict\": \"ok\"}\n```"))

	payload, err := s.GenerateStructured(context.Background(), "judge this", schema)
	if err != nil {
		t.Fatalf("GenerateStructured() error = %v", err)
	}
	if string(payload) != `{"verdict": "ok"}` {
		t.Errorf("GenerateStructured() = %s", payload)
	}

	s = mockSystem(mock.NewSimpleChatAgent("test", `{"wrong": 1}`))
	if _, err := s.GenerateStructured(context.Background(), "judge this", schema); !errors.Is(err, ErrStructuring) {
		t.Fatalf("GenerateStructured() error = %v, want ErrStructuring", err)
	}
}
