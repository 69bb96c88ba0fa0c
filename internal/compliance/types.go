// Package compliance implements the statutory compliance pipeline. It
// runs in two phases against the block snapshot of a completed contract
// analysis: a broad identification pass that maps every clause to the
// candidate statute articles it may implicate, and a deep pass that
// analyzes each flagged (clause, article) pair against the full article
// text.
package compliance

import (
	"time"

	"github.com/google/uuid"

	"github.com/klauselwerk/klausel/internal/corpus"
)

// Deep analysis severities, ordered from harmless to critical.
const (
	SeveritySafe     = "safe"
	SeverityMinor    = "minor"
	SeverityModerate = "moderate"
	SeverityCritical = "critical"
)

var severityRank = map[string]int{
	SeveritySafe:     0,
	SeverityMinor:    1,
	SeverityModerate: 2,
	SeverityCritical: 3,
}

// ValidSeverity reports whether s is a known deep analysis severity.
func ValidSeverity(s string) bool {
	_, ok := severityRank[s]
	return ok
}

// ArticleRef is one article citation from the identification phase.
type ArticleRef struct {
	ArticleName  string `json:"article_name"`
	ArticleTitle string `json:"article_title"`
	Source       string `json:"source"`
	Reason       string `json:"reason"`
}

// Phase1Result is the identification outcome for one contract block:
// whether it plausibly violates statute law, the articles it cites in
// the order the model listed them, and whether it warrants a deep pass.
type Phase1Result struct {
	AnchorID        string       `json:"anchor_id"`
	HasViolation    bool         `json:"has_violation"`
	Articles        []ArticleRef `json:"articles"`
	NeedsDeepReview bool         `json:"needs_deep_review"`
}

// Task is one (clause, article) pair queued for deep analysis.
type Task struct {
	AnchorID string     `json:"anchor_id"`
	Article  ArticleRef `json:"article"`
}

// Phase2Result is the deep analysis verdict for one task. A task whose
// cited article cannot be resolved against the catalog produces no
// result at all; it is counted on the final output instead.
type Phase2Result struct {
	AnchorID         string `json:"anchor_id"`
	ArticleName      string `json:"article_name"`
	Source           string `json:"source"`
	Severity         string `json:"severity"`
	ViolationDetails string `json:"violation_details"`
	Recommendation   string `json:"recommendation"`
}

// Summary aggregates both phases into the counters reported on the job.
type Summary struct {
	TotalBlocks          int `json:"total_blocks"`
	BlocksWithViolations int `json:"blocks_with_violations"`
	CriticalViolations   int `json:"critical_violations"`
	ModerateViolations   int `json:"moderate_violations"`
	MinorViolations      int `json:"minor_violations"`
}

// Result is the final output persisted on the job. SkippedArticles
// counts citations of sources that are not enabled; UnresolvedArticles
// counts citations that name an enabled source but no known article.
// Both indicate findings the pipeline could not follow up on.
type Result struct {
	DocumentID         uuid.UUID      `json:"document_id"`
	Sources            []string       `json:"sources"`
	Phase1             []Phase1Result `json:"phase1"`
	Phase2             []Phase2Result `json:"phase2"`
	Summary            Summary        `json:"summary"`
	SkippedArticles    int            `json:"skipped_articles"`
	UnresolvedArticles int            `json:"unresolved_articles"`
	CompletedAt        time.Time      `json:"completed_at"`
}

// State is the pipeline state carried through the graph.
type State struct {
	DocumentID uuid.UUID
	Catalog    *corpus.Catalog
	Blocks     []Block
	Phase1     []Phase1Result
	Tasks      []Task
	Skipped    int
	Unresolved int
	Phase2     []Phase2Result
}

// Block mirrors the contract block snapshot written by the analysis
// pipeline.
type Block struct {
	PageNumber     int    `json:"page_number"`
	ParagraphLabel string `json:"paragraph_label"`
	Content        string `json:"content"`
	AnchorID       string `json:"anchor_id"`
}
