// Package risk calls the hallucination risk assessment sidecar. The
// sidecar scores a review prompt and returns bounds on how likely the
// model output is to be unsupported by the prompt evidence.
package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrUnavailable indicates the sidecar could not produce an assessment.
var ErrUnavailable = errors.New("risk service unavailable")

// Assessment carries the risk metrics attached to clause reviews.
type Assessment struct {
	Risk             float64 `json:"risk"`
	SufficiencyRatio float64 `json:"sufficiency_ratio"`
	InfoBudget       float64 `json:"info_budget"`
}

// Client defines the risk assessment contract consumed by the analysis
// pipeline. Implementations must be safe for concurrent use.
type Client interface {
	Assess(ctx context.Context, prompt string) (*Assessment, error)
}

type client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a risk client against the given base URL.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) Client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With("system", "risk"),
	}
}

func (c *client) Assess(ctx context.Context, prompt string) (*Assessment, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt})
	if err != nil {
		return nil, fmt.Errorf("encode assessment request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.baseURL+"/assess",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("build assessment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var assessment Assessment
	if err := json.NewDecoder(resp.Body).Decode(&assessment); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}

	return &assessment, nil
}
