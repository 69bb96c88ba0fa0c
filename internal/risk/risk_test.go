package risk_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauselwerk/klausel/internal/risk"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAssess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assess" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["prompt"] == "" {
			t.Error("expected prompt in request body")
		}

		json.NewEncoder(w).Encode(map[string]float64{
			"risk":              0.12,
			"sufficiency_ratio": 1.8,
			"info_budget":       4.2,
		})
	}))
	defer srv.Close()

	c := risk.New(srv.URL, time.Second, discard())

	a, err := c.Assess(context.Background(), "clause review prompt")
	if err != nil {
		t.Fatalf("Assess() error = %v", err)
	}

	if a.Risk != 0.12 {
		t.Errorf("Risk = %v, want 0.12", a.Risk)
	}
	if a.SufficiencyRatio != 1.8 {
		t.Errorf("SufficiencyRatio = %v, want 1.8", a.SufficiencyRatio)
	}
	if a.InfoBudget != 4.2 {
		t.Errorf("InfoBudget = %v, want 4.2", a.InfoBudget)
	}
}

func TestAssessServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := risk.New(srv.URL, time.Second, discard())

	if _, err := c.Assess(context.Background(), "prompt"); !errors.Is(err, risk.ErrUnavailable) {
		t.Fatalf("Assess() error = %v, want ErrUnavailable", err)
	}
}

func TestAssessUnreachable(t *testing.T) {
	c := risk.New("http://127.0.0.1:1", 100*time.Millisecond, discard())

	if _, err := c.Assess(context.Background(), "prompt"); !errors.Is(err, risk.ErrUnavailable) {
		t.Fatalf("Assess() error = %v, want ErrUnavailable", err)
	}
}
