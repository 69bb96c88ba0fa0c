package analysis_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/klauselwerk/klausel/internal/analysis"
	"github.com/klauselwerk/klausel/internal/config"
	"github.com/klauselwerk/klausel/internal/documents"
	"github.com/klauselwerk/klausel/internal/inference"
	"github.com/klauselwerk/klausel/internal/risk"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPipelineConfig() config.PipelineConfig {
	cfg := config.PipelineConfig{
		PagesPerWave:   2,
		ReviewWaveSize: 5,
		StepTimeout:    "5s",
		WaveTimeout:    "10s",
		MaxAttempts:    2,
		RetryDelay:     "1ms",
	}
	return cfg
}

type fakeJobs struct {
	mu        sync.Mutex
	results   map[string][]byte
	progress  int
	status    string
	stage     string
	completed json.RawMessage
	failure   string
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{results: map[string][]byte{}}
}

func (f *fakeJobs) key(jobID uuid.UUID, step string) string {
	return jobID.String() + "/" + step
}

func (f *fakeJobs) FindResult(_ context.Context, jobID uuid.UUID, step string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.results[f.key(jobID, step)]
	return data, ok, nil
}

func (f *fakeJobs) SaveResult(_ context.Context, jobID uuid.UUID, step string, result []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[f.key(jobID, step)] = result
	return nil
}

func (f *fakeJobs) SetProgress(_ context.Context, _ uuid.UUID, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if progress > f.progress {
		f.progress = progress
	}
	return nil
}

func (f *fakeJobs) MarkFailed(_ context.Context, _ uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = "failed"
	f.failure = message
	return nil
}

func (f *fakeJobs) MarkInProgress(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = "in_progress"
	return nil
}

func (f *fakeJobs) SetStage(_ context.Context, _ uuid.UUID, stage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stage = stage
	return nil
}

func (f *fakeJobs) MarkCompleted(_ context.Context, _ uuid.UUID, results json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = "completed"
	f.completed = results
	f.progress = 100
	return nil
}

type fakeDocs struct {
	doc *documents.Document
}

func (f *fakeDocs) Find(context.Context, uuid.UUID) (*documents.Document, error) {
	return f.doc, nil
}

type fakeBlob struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{blobs: map[string][]byte{}}
}

func (f *fakeBlob) ReadAll(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	return data, nil
}

func (f *fakeBlob) Upload(_ context.Context, key string, reader io.Reader, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = data
	return nil
}

type fakeRenderer struct {
	pages int
}

func (f *fakeRenderer) RenderPages(context.Context, []byte) ([]string, error) {
	uris := make([]string, f.pages)
	for i := range uris {
		uris[i] = fmt.Sprintf("data:image/png;base64,page%d", i+1)
	}
	return uris, nil
}

type fakeInference struct {
	blocksPerPage  int
	visionErr      error
	reviewPayload  string
	summaryPayload string
	summaryErr     error
}

func (f *fakeInference) GenerateVision(_ context.Context, _ string, _ []string) (string, error) {
	if f.visionErr != nil {
		return "", f.visionErr
	}

	blocks := make([]string, f.blocksPerPage)
	for i := range blocks {
		blocks[i] = fmt.Sprintf(`{"paragraph_label": "§ %d", "content": "Klausel Inhalt %d"}`, i+1, i+1)
	}
	return fmt.Sprintf(`{"blocks": [%s]}`, strings.Join(blocks, ",")), nil
}

func (f *fakeInference) GenerateText(context.Context, string) (string, error) {
	if f.reviewPayload != "" {
		return f.reviewPayload, nil
	}
	return `{"severity": "safe", "start": 0, "end": 0, "comment": "unauffällig"}`, nil
}

func (f *fakeInference) GenerateStructured(context.Context, string, *inference.Schema) (json.RawMessage, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	if f.summaryPayload != "" {
		return json.RawMessage(f.summaryPayload), nil
	}
	return json.RawMessage(`{"title": "Dienstleistungsvertrag", "overall_evaluation": "safe", "narrative": "Vertrag ohne auffällige Risiken.", "concerns": []}`), nil
}

type failingRisk struct{}

func (failingRisk) Assess(context.Context, string) (*risk.Assessment, error) {
	return nil, risk.ErrUnavailable
}

func testRuntime(jobs *fakeJobs, blob *fakeBlob, inf inference.System, riskClient risk.Client, pages int) (*analysis.Runtime, uuid.UUID) {
	documentID := uuid.New()
	blob.blobs["documents/"+documentID.String()+"/contract.pdf"] = []byte("%PDF-fake")

	rt := &analysis.Runtime{
		Jobs: jobs,
		Documents: &fakeDocs{doc: &documents.Document{
			ID:         documentID,
			Filename:   "contract.pdf",
			StorageKey: "documents/" + documentID.String() + "/contract.pdf",
		}},
		Storage:   blob,
		Inference: inf,
		Risk:      riskClient,
		Renderer:  &fakeRenderer{pages: pages},
		Pipeline:  testPipelineConfig(),
		Logger:    discard(),
	}
	return rt, documentID
}

func TestExecuteCompletesJob(t *testing.T) {
	jobs := newFakeJobs()
	blob := newFakeBlob()
	rt, documentID := testRuntime(jobs, blob, &fakeInference{blocksPerPage: 4}, nil, 3)

	jobID := uuid.New()
	analysis.Execute(context.Background(), rt, jobID, documentID)

	if jobs.status != "completed" {
		t.Fatalf("status = %s (failure: %s), want completed", jobs.status, jobs.failure)
	}
	if jobs.progress != 100 {
		t.Errorf("progress = %d, want 100", jobs.progress)
	}

	var result analysis.Result
	if err := json.Unmarshal(jobs.completed, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	if result.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", result.PageCount)
	}
	if len(result.Blocks) != 12 {
		t.Errorf("len(Blocks) = %d, want 12", len(result.Blocks))
	}
	if len(result.Reviews) != 12 {
		t.Errorf("len(Reviews) = %d, want 12", len(result.Reviews))
	}
	if len(result.TopFindings) != 0 {
		t.Errorf("len(TopFindings) = %d, want 0 for all-safe reviews", len(result.TopFindings))
	}
	if result.Blocks[0].AnchorID != "p1-0" {
		t.Errorf("Blocks[0].AnchorID = %s, want p1-0", result.Blocks[0].AnchorID)
	}
	if result.Summary.OverallEvaluation != analysis.SeveritySafe {
		t.Errorf("Summary.OverallEvaluation = %s, want safe for all-safe reviews", result.Summary.OverallEvaluation)
	}
	if result.Summary.Title == "" {
		t.Error("Summary.Title is empty")
	}

	if _, ok := blob.blobs[analysis.BlocksKey(documentID)]; !ok {
		t.Error("expected block snapshot in blob storage")
	}
}

func TestExecuteRecordsFailure(t *testing.T) {
	jobs := newFakeJobs()
	blob := newFakeBlob()
	rt, documentID := testRuntime(jobs, blob,
		&fakeInference{visionErr: errors.New("model offline")}, nil, 1)

	analysis.Execute(context.Background(), rt, uuid.New(), documentID)

	if jobs.status != "failed" {
		t.Fatalf("status = %s, want failed", jobs.status)
	}
	if jobs.failure == "" {
		t.Error("expected failure message on job")
	}
}

func TestExecuteDegradesWithoutRiskService(t *testing.T) {
	jobs := newFakeJobs()
	blob := newFakeBlob()
	rt, documentID := testRuntime(jobs, blob, &fakeInference{blocksPerPage: 2}, failingRisk{}, 1)

	analysis.Execute(context.Background(), rt, uuid.New(), documentID)

	if jobs.status != "completed" {
		t.Fatalf("status = %s (failure: %s), want completed despite risk outage", jobs.status, jobs.failure)
	}

	var result analysis.Result
	if err := json.Unmarshal(jobs.completed, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	for _, review := range result.Reviews {
		if review.Risk != nil {
			t.Errorf("review %s carries risk metrics despite sidecar outage", review.AnchorID)
		}
	}
}

func TestExecuteBuildsFallbackSummary(t *testing.T) {
	jobs := newFakeJobs()
	blob := newFakeBlob()
	inf := &fakeInference{
		blocksPerPage: 2,
		reviewPayload: `{"severity": "high", "start": 0, "end": 10, "comment": "Unbeschränkte Haftung."}`,
		summaryErr:    fmt.Errorf("%w: not json", inference.ErrStructuring),
	}
	rt, documentID := testRuntime(jobs, blob, inf, nil, 1)

	analysis.Execute(context.Background(), rt, uuid.New(), documentID)

	if jobs.status != "completed" {
		t.Fatalf("status = %s (failure: %s), want completed despite summary structuring failure", jobs.status, jobs.failure)
	}

	var result analysis.Result
	if err := json.Unmarshal(jobs.completed, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	if result.Summary.OverallEvaluation != analysis.SeverityHigh {
		t.Errorf("Summary.OverallEvaluation = %s, want high from the reviews", result.Summary.OverallEvaluation)
	}
	if result.Summary.Title == "" || result.Summary.Narrative == "" {
		t.Errorf("fallback summary incomplete: %+v", result.Summary)
	}
	if len(result.Summary.Concerns) == 0 {
		t.Error("fallback summary has no concerns despite risky reviews")
	}
	for _, c := range result.Summary.Concerns {
		if c.AnchorID == "" {
			t.Error("fallback concern missing anchor id")
		}
	}
}

func TestExecuteExtractsEmbeddedTitle(t *testing.T) {
	jobs := newFakeJobs()
	blob := newFakeBlob()
	inf := &fakeInference{
		blocksPerPage:  1,
		summaryPayload: `{"title": "", "overall_evaluation": "safe", "narrative": "# Kaufvertrag Bürotechnik\nDer Vertrag ist insgesamt unauffällig.", "concerns": []}`,
	}
	rt, documentID := testRuntime(jobs, blob, inf, nil, 1)

	analysis.Execute(context.Background(), rt, uuid.New(), documentID)

	if jobs.status != "completed" {
		t.Fatalf("status = %s (failure: %s), want completed", jobs.status, jobs.failure)
	}

	var result analysis.Result
	if err := json.Unmarshal(jobs.completed, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	if result.Summary.Title != "Kaufvertrag Bürotechnik" {
		t.Errorf("Summary.Title = %q, want title lifted from the narrative heading", result.Summary.Title)
	}
	if strings.HasPrefix(result.Summary.Narrative, "#") {
		t.Errorf("Summary.Narrative = %q, heading should have been stripped", result.Summary.Narrative)
	}
}

func TestExecuteReplaysCompletedWaves(t *testing.T) {
	jobs := newFakeJobs()
	blob := newFakeBlob()
	rt, documentID := testRuntime(jobs, blob, &fakeInference{blocksPerPage: 1}, nil, 2)

	jobID := uuid.New()
	analysis.Execute(context.Background(), rt, jobID, documentID)

	if jobs.status != "completed" {
		t.Fatalf("first run status = %s, want completed", jobs.status)
	}

	// Second run with an inference system that always fails. Every
	// inference-backed step must replay from the durable log.
	rt.Inference = &fakeInference{visionErr: errors.New("model offline")}
	analysis.Execute(context.Background(), rt, jobID, documentID)

	if jobs.status != "completed" {
		t.Fatalf("replayed run status = %s (failure: %s), want completed", jobs.status, jobs.failure)
	}
}
