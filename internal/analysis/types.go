// Package analysis implements the contract analysis pipeline: parse the
// rendered pages into clause blocks, review every block for risk,
// summarize the findings, and persist the result. The pipeline runs as
// a state graph whose expensive stages are durable steps, so a crashed
// job resumes from its last completed wave instead of starting over.
package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/klauselwerk/klausel/internal/risk"
)

// Review severities, ordered from least to most concerning.
const (
	SeveritySafe     = "safe"
	SeverityMedium   = "medium"
	SeverityElevated = "elevated"
	SeverityHigh     = "high"
)

var severityRank = map[string]int{
	SeveritySafe:     0,
	SeverityMedium:   1,
	SeverityElevated: 2,
	SeverityHigh:     3,
}

// ValidSeverity reports whether s names a known severity.
func ValidSeverity(s string) bool {
	_, ok := severityRank[s]
	return ok
}

// ContractBlock is one clause or paragraph extracted from a contract
// page. AnchorID is stable across runs (p{page}-{index}) and links
// compliance findings back to the clause.
type ContractBlock struct {
	PageNumber     int    `json:"page_number"`
	ParagraphLabel string `json:"paragraph_label"`
	Content        string `json:"content"`
	AnchorID       string `json:"anchor_id"`
}

// AnchorID derives the stable anchor for a block at position index on
// the given page.
func AnchorID(pageNumber, index int) string {
	return fmt.Sprintf("p%d-%d", pageNumber, index)
}

// Review is the risk assessment of a single contract block. Start and
// End are rune offsets into the block content marking the problematic
// span. Risk carries the optional hallucination metrics from the risk
// sidecar.
type Review struct {
	BlockIndex int              `json:"block_index"`
	AnchorID   string           `json:"anchor_id"`
	Severity   string           `json:"severity"`
	Start      int              `json:"start"`
	End        int              `json:"end"`
	Comment    string           `json:"comment"`
	Risk       *risk.Assessment `json:"risk,omitempty"`
}

// ClampSpan normalizes a review span against the block content length
// in runes. Offsets are clamped into [0, length] and swapped when
// reversed. A safe review whose span is empty after clamping widens to
// the full block, marking the whole clause as the confirmed-safe range.
func ClampSpan(severity string, start, end, length int) (int, int) {
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > length {
			return length
		}
		return v
	}

	start, end = clamp(start), clamp(end)
	if start > end {
		start, end = end, start
	}
	if severity == SeveritySafe && start == end {
		return 0, length
	}
	return start, end
}

// Concern is one of the linked top findings in the document summary.
type Concern struct {
	AnchorID string `json:"anchor_id"`
	Severity string `json:"severity"`
	Note     string `json:"note"`
}

// Summary is the document-level rollup produced by the summarize
// stage: a title, the overall severity across all reviews, a short
// narrative, and up to three concerns linked to their clauses.
type Summary struct {
	Title             string    `json:"title"`
	OverallEvaluation string    `json:"overall_evaluation"`
	Narrative         string    `json:"narrative"`
	Concerns          []Concern `json:"concerns"`
}

// OverallSeverity is the highest severity across the reviews, safe
// when none are risky.
func OverallSeverity(reviews []Review) string {
	overall := SeveritySafe
	for _, r := range reviews {
		if severityRank[r.Severity] > severityRank[overall] {
			overall = r.Severity
		}
	}
	return overall
}

// Result is the final output persisted on the job.
type Result struct {
	DocumentID  uuid.UUID       `json:"document_id"`
	Filename    string          `json:"filename"`
	PageCount   int             `json:"page_count"`
	Blocks      []ContractBlock `json:"blocks"`
	Reviews     []Review        `json:"reviews"`
	Summary     Summary         `json:"summary"`
	TopFindings []Review        `json:"top_findings"`
	CompletedAt time.Time       `json:"completed_at"`
}

// TopFindings selects the n most severe non-safe reviews. The sort is
// stable so equally severe findings keep document order.
func TopFindings(reviews []Review, n int) []Review {
	findings := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Severity != SeveritySafe {
			findings = append(findings, r)
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return severityRank[findings[i].Severity] > severityRank[findings[j].Severity]
	})

	if len(findings) > n {
		findings = findings[:n]
	}
	return findings
}

// State is the pipeline state carried through the graph.
type State struct {
	DocumentID uuid.UUID
	Filename   string
	PageImages []string
	Blocks     []ContractBlock
	Reviews    []Review
	Summary    Summary
}
