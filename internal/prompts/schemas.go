package prompts

import "github.com/klauselwerk/klausel/internal/inference"

// Compiled output schemas, one per structured stage.
var (
	ParseSchema = inference.MustSchema("parse.json", `{
		"type": "object",
		"required": ["blocks"],
		"properties": {
			"blocks": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["paragraph_label", "content"],
					"properties": {
						"paragraph_label": {"type": "string"},
						"content": {"type": "string", "minLength": 1}
					}
				}
			}
		}
	}`)

	ReviewSchema = inference.MustSchema("review.json", `{
		"type": "object",
		"required": ["severity", "start", "end", "comment"],
		"properties": {
			"severity": {"type": "string", "enum": ["safe", "medium", "elevated", "high"]},
			"start": {"type": "integer", "minimum": 0},
			"end": {"type": "integer", "minimum": 0},
			"comment": {"type": "string"}
		}
	}`)

	SummarySchema = inference.MustSchema("summary.json", `{
		"type": "object",
		"required": ["title", "overall_evaluation", "narrative", "concerns"],
		"properties": {
			"title": {"type": "string"},
			"overall_evaluation": {"type": "string", "enum": ["safe", "medium", "elevated", "high"]},
			"narrative": {"type": "string", "minLength": 1},
			"concerns": {
				"type": "array",
				"maxItems": 3,
				"items": {
					"type": "object",
					"required": ["anchor_id", "severity", "note"],
					"properties": {
						"anchor_id": {"type": "string"},
						"severity": {"type": "string", "enum": ["safe", "medium", "elevated", "high"]},
						"note": {"type": "string"}
					}
				}
			}
		}
	}`)

	IdentifySchema = inference.MustSchema("identify.json", `{
		"type": "object",
		"required": ["results"],
		"properties": {
			"results": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["anchor_id", "has_violation", "articles", "needs_deep_review"],
					"properties": {
						"anchor_id": {"type": "string", "minLength": 1},
						"has_violation": {"type": "boolean"},
						"articles": {
							"type": "array",
							"items": {
								"type": "object",
								"required": ["article_name", "source"],
								"properties": {
									"article_name": {"type": "string", "minLength": 1},
									"article_title": {"type": "string"},
									"source": {"type": "string", "minLength": 1},
									"reason": {"type": "string"}
								}
							}
						},
						"needs_deep_review": {"type": "boolean"}
					}
				}
			}
		}
	}`)

	DeepSchema = inference.MustSchema("deep.json", `{
		"type": "object",
		"required": ["severity", "violation_details", "recommendation"],
		"properties": {
			"severity": {"type": "string", "enum": ["safe", "minor", "moderate", "critical"]},
			"violation_details": {"type": "string"},
			"recommendation": {"type": "string"}
		}
	}`)
)
