// Package prompts composes the stage prompts and structured output
// schemas for both pipelines. Prompts are assembled in code from the
// pipeline inputs; the paired schemas gate what the model returns.
package prompts

import (
	"fmt"
	"strings"
)

// Job stage labels. These are externally observable on the job record
// and track the pipeline state machines.
const (
	StageParsing             = "parsing"
	StageReviewing           = "reviewing"
	StageSummarizing         = "summarizing"
	StageComplianceCheck     = "compliance_check"
	StageIdentifyingArticles = "identifying_articles"
	StageDeepAnalysis        = "deep_analysis"
	StageComplianceCompleted = "compliance_completed"
)

// ParsePage builds the vision prompt for extracting contract blocks
// from one rendered page image.
func ParsePage(pageNumber int) string {
	var b strings.Builder
	b.WriteString("You are analyzing page ")
	fmt.Fprintf(&b, "%d", pageNumber)
	b.WriteString(" of a German commercial contract.\n\n")
	b.WriteString("Extract every distinct clause or paragraph visible on the page as a separate block, in reading order. ")
	b.WriteString("Preserve the original German text exactly, including section markers (§, Ziffer, Absatz). ")
	b.WriteString("Use the printed paragraph label when one exists, otherwise an empty string.\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString(`{"blocks": [{"paragraph_label": "...", "content": "..."}]}`)
	return b.String()
}

// ReviewBlock builds the review prompt for one contract block. The
// surrounding blocks give the model enough context to judge cross
// references without feeding it the whole document.
func ReviewBlock(label, content, context string) string {
	var b strings.Builder
	b.WriteString("You are a contract risk reviewer for German commercial agreements.\n\n")
	if context != "" {
		b.WriteString("Surrounding clauses for context:\n")
		b.WriteString(context)
		b.WriteString("\n\n")
	}
	b.WriteString("Review this clause")
	if label != "" {
		fmt.Fprintf(&b, " (%s)", label)
	}
	b.WriteString(":\n")
	b.WriteString(content)
	b.WriteString("\n\n")
	b.WriteString("Rate its risk as one of: safe, medium, elevated, high. ")
	b.WriteString("If risky, identify the exact problematic span with start and end character offsets into the clause text, ")
	b.WriteString("and explain the concern in one or two sentences. ")
	b.WriteString("For safe clauses use offsets 0 and 0 and a short confirmation.\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString(`{"severity": "...", "start": 0, "end": 0, "comment": "..."}`)
	return b.String()
}

// Summarize builds the document summary prompt from the rendered
// review findings.
func Summarize(findings string) string {
	var b strings.Builder
	b.WriteString("You reviewed a German commercial contract clause by clause. ")
	b.WriteString("These are the findings:\n\n")
	b.WriteString(findings)
	b.WriteString("\n\n")
	b.WriteString("Write an executive summary of the contract. Give it a short title, ")
	b.WriteString("an overall evaluation (one of: safe, medium, elevated, high), a brief narrative of the risk posture, ")
	b.WriteString("and the three most important concerns, each linked to its clause anchor id. ")
	b.WriteString("List fewer than three concerns only when the findings contain fewer.\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString(`{"title": "...", "overall_evaluation": "...", "narrative": "...", "concerns": [{"anchor_id": "p1-0", "severity": "high", "note": "..."}]}`)
	return b.String()
}

// IdentifyArticles builds the phase one compliance prompt: given a
// batch of contract blocks and a budget-limited slice of the statute
// catalog, report for every block which articles it potentially
// implicates.
func IdentifyArticles(articles, blocks string) string {
	var b strings.Builder
	b.WriteString("You are checking clauses of a German commercial contract against statute law.\n\n")
	b.WriteString("Available statute articles:\n")
	b.WriteString(articles)
	b.WriteString("\n\nContract clauses, each tagged with an anchor id:\n")
	b.WriteString(blocks)
	b.WriteString("\n\n")
	b.WriteString("Report one result per clause. Set has_violation when the clause plausibly conflicts with a listed article, ")
	b.WriteString("cite the implicated articles with a short reason each, and set needs_deep_review when the clause warrants ")
	b.WriteString("a detailed check against the full article text. Only cite articles from the list above. ")
	b.WriteString("A clause with no plausible statutory connection gets an empty article list.\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString(`{"results": [{"anchor_id": "p1-0", "has_violation": false, "articles": [{"article_name": "§ 307", "article_title": "Inhaltskontrolle", "source": "BGB", "reason": "..."}], "needs_deep_review": false}]}`)
	return b.String()
}

// DeepAnalyze builds the phase two compliance prompt: one article with
// its full text and legal context against one flagged clause.
func DeepAnalyze(articleRef, articleText, legalContext, block string) string {
	var b strings.Builder
	b.WriteString("You are performing a detailed statutory compliance analysis of a contract clause ")
	fmt.Fprintf(&b, "against %s.\n\n", articleRef)
	b.WriteString("Article text:\n")
	b.WriteString(articleText)
	if legalContext != "" {
		b.WriteString("\n\nRelated articles for context:\n")
		b.WriteString(legalContext)
	}
	b.WriteString("\n\nContract clause under review:\n")
	b.WriteString(block)
	b.WriteString("\n\n")
	b.WriteString("Judge how severely the clause conflicts with the article. ")
	b.WriteString("Set severity to one of: safe, minor, moderate, critical. ")
	b.WriteString("Describe the conflict in violation_details, quoting the decisive clause language (empty when safe), ")
	b.WriteString("and give a concrete recommendation for bringing the clause into compliance.\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString(`{"severity": "...", "violation_details": "...", "recommendation": "..."}`)
	return b.String()
}
