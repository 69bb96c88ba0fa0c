package steps_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/klauselwerk/klausel/pkg/steps"
)

type memoryStore struct {
	mu      sync.Mutex
	results map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{results: make(map[string][]byte)}
}

func (s *memoryStore) key(jobID uuid.UUID, step string) string {
	return jobID.String() + "/" + step
}

func (s *memoryStore) FindResult(_ context.Context, jobID uuid.UUID, step string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[s.key(jobID, step)]
	return result, ok, nil
}

func (s *memoryStore) SaveResult(_ context.Context, jobID uuid.UUID, step string, result []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[s.key(jobID, step)] = result
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newExecutor(store steps.Store) *steps.Executor {
	cfg := steps.Config{
		Timeout:     time.Second,
		WaveTimeout: 5 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	}
	return steps.NewExecutor(store, uuid.New(), cfg, discard())
}

func TestRunRecordsResult(t *testing.T) {
	store := newMemoryStore()
	e := newExecutor(store)

	calls := 0
	got, err := steps.Run(context.Background(), e, "count-pages", func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got != 42 {
		t.Errorf("result = %d, want 42", got)
	}
	if calls != 1 {
		t.Errorf("fn invoked %d times, want 1", calls)
	}
}

func TestRunReplaySkipsExecution(t *testing.T) {
	store := newMemoryStore()
	e := newExecutor(store)

	calls := 0
	fn := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	first, err := steps.Run(context.Background(), e, "extract", fn)
	if err != nil {
		t.Fatalf("first Run error: %v", err)
	}

	second, err := steps.Run(context.Background(), e, "extract", fn)
	if err != nil {
		t.Fatalf("replay Run error: %v", err)
	}

	if calls != 1 {
		t.Errorf("fn invoked %d times, want 1 (replay must not re-execute)", calls)
	}
	if len(second) != len(first) || second[0] != "a" || second[1] != "b" {
		t.Errorf("replayed result = %v, want %v", second, first)
	}
}

func TestRunDistinctStepsExecuteIndependently(t *testing.T) {
	store := newMemoryStore()
	e := newExecutor(store)

	for _, name := range []string{"wave-0", "wave-1", "wave-2"} {
		if _, err := steps.Run(context.Background(), e, name, func(context.Context) (string, error) {
			return name, nil
		}); err != nil {
			t.Fatalf("Run(%s) error: %v", name, err)
		}
	}

	got, _, err := store.FindResult(context.Background(), e.JobID(), "wave-1")
	if err != nil || got == nil {
		t.Fatalf("wave-1 not recorded: %v", err)
	}
}

func TestRunRetriesTransientFailures(t *testing.T) {
	store := newMemoryStore()
	e := newExecutor(store)

	calls := 0
	got, err := steps.Run(context.Background(), e, "flaky", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("upstream unavailable")
		}
		return 7, nil
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if got != 7 {
		t.Errorf("result = %d, want 7", got)
	}
	if calls != 3 {
		t.Errorf("fn invoked %d times, want 3", calls)
	}
}

func TestRunExhaustsAttempts(t *testing.T) {
	store := newMemoryStore()
	e := newExecutor(store)

	calls := 0
	_, err := steps.Run(context.Background(), e, "doomed", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("still broken")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("fn invoked %d times, want 3", calls)
	}

	if _, found, _ := store.FindResult(context.Background(), e.JobID(), "doomed"); found {
		t.Error("failed step must not be recorded")
	}
}

func TestRunPermanentErrorSkipsRetry(t *testing.T) {
	store := newMemoryStore()
	e := newExecutor(store)

	calls := 0
	_, err := steps.Run(context.Background(), e, "structural", func(context.Context) (int, error) {
		calls++
		return 0, steps.Permanent(errors.New("schema mismatch"))
	})
	if !errors.Is(err, steps.ErrPermanent) {
		t.Fatalf("expected ErrPermanent, got %v", err)
	}
	if calls != 1 {
		t.Errorf("fn invoked %d times, want 1 (permanent errors must not retry)", calls)
	}
}

func TestRunWaveTimeout(t *testing.T) {
	store := newMemoryStore()
	cfg := steps.Config{
		Timeout:     10 * time.Millisecond,
		WaveTimeout: time.Second,
		MaxAttempts: 1,
	}
	e := steps.NewExecutor(store, uuid.New(), cfg, discard())

	// Under the short default timeout this step would be cancelled;
	// the wave timeout gives it room.
	got, err := steps.RunWave(context.Background(), e, "slow-wave", func(ctx context.Context) (string, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	if err != nil {
		t.Fatalf("RunWave error: %v", err)
	}
	if got != "done" {
		t.Errorf("result = %q, want done", got)
	}
}

func TestRunStepTimeoutSurfaces(t *testing.T) {
	store := newMemoryStore()
	cfg := steps.Config{
		Timeout:     10 * time.Millisecond,
		WaveTimeout: time.Second,
		MaxAttempts: 1,
	}
	e := steps.NewExecutor(store, uuid.New(), cfg, discard())

	_, err := steps.Run(context.Background(), e, "stalled", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
