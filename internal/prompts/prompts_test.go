package prompts_test

import (
	"strings"
	"testing"

	"github.com/klauselwerk/klausel/internal/prompts"
)

func TestParsePageIncludesPageNumber(t *testing.T) {
	p := prompts.ParsePage(7)
	if !strings.Contains(p, "page 7") {
		t.Errorf("prompt missing page number: %s", p)
	}
}

func TestReviewBlockIncludesClauseAndContext(t *testing.T) {
	p := prompts.ReviewBlock("§ 4 Abs. 2", "Die Haftung ist unbeschränkt.", "§ 4 Abs. 1 ...")

	for _, want := range []string{"§ 4 Abs. 2", "Die Haftung ist unbeschränkt.", "§ 4 Abs. 1"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestReviewBlockOmitsEmptyContext(t *testing.T) {
	p := prompts.ReviewBlock("", "Zahlung binnen 30 Tagen.", "")
	if strings.Contains(p, "Surrounding clauses") {
		t.Error("prompt should omit context section when context is empty")
	}
}

func TestDeepAnalyzeIncludesArticle(t *testing.T) {
	p := prompts.DeepAnalyze("BGB § 307", "Bestimmungen in AGB...", "", "[p1-0] Die Haftung...")

	if !strings.Contains(p, "BGB § 307") {
		t.Error("prompt missing article ref")
	}
	if strings.Contains(p, "Related articles") {
		t.Error("prompt should omit legal context section when empty")
	}
}

func TestSchemasAcceptCanonicalPayloads(t *testing.T) {
	tests := []struct {
		name    string
		schema  interface{ Validate([]byte) error }
		payload string
	}{
		{"parse", prompts.ParseSchema, `{"blocks": [{"paragraph_label": "§ 1", "content": "Text"}]}`},
		{"review", prompts.ReviewSchema, `{"severity": "high", "start": 0, "end": 12, "comment": "x"}`},
		{"summary", prompts.SummarySchema, `{"title": "Kaufvertrag", "overall_evaluation": "medium", "narrative": "n", "concerns": [{"anchor_id": "p1-0", "severity": "medium", "note": "x"}]}`},
		{"identify", prompts.IdentifySchema, `{"results": [{"anchor_id": "p1-0", "has_violation": true, "articles": [{"article_name": "§ 307", "source": "BGB"}], "needs_deep_review": true}]}`},
		{"deep", prompts.DeepSchema, `{"severity": "moderate", "violation_details": "d", "recommendation": "r"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.schema.Validate([]byte(tt.payload)); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}

func TestSchemasRejectInvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		schema  interface{ Validate([]byte) error }
		payload string
	}{
		{"summary too many concerns", prompts.SummarySchema, `{"title": "t", "overall_evaluation": "safe", "narrative": "n", "concerns": [
			{"anchor_id": "p1-0", "severity": "high", "note": "a"},
			{"anchor_id": "p1-1", "severity": "high", "note": "b"},
			{"anchor_id": "p1-2", "severity": "high", "note": "c"},
			{"anchor_id": "p1-3", "severity": "high", "note": "d"}]}`},
		{"identify citation without source", prompts.IdentifySchema, `{"results": [{"anchor_id": "p1-0", "has_violation": true, "articles": [{"article_name": "§ 307"}], "needs_deep_review": true}]}`},
		{"deep unknown severity", prompts.DeepSchema, `{"severity": "harmless", "violation_details": "d", "recommendation": "r"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.schema.Validate([]byte(tt.payload)); err == nil {
				t.Fatal("Validate() accepted an invalid payload")
			}
		})
	}
}
