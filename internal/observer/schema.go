package observer

import "github.com/abhisek/mentorloop/internal/llm"

// Enumerations used in signals and improvements.
var (
	Difficulties     = []any{"basic", "intermediate", "advanced"}
	ImprovementTypes = []any{"content_gap", "retrieval_issue", "explanation_issue", "ambiguity_issue"}
	Priorities       = []any{"low", "medium", "high", "critical"}
)

// SignalSchema constrains the per-turn analysis.
var SignalSchema = &llm.Schema{
	Name:        "learning-signal",
	Description: "Assessment of how well one tutor answer served the student",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question_difficulty": map[string]any{"type": "string", "enum": Difficulties},
			"detected_confusion": map[string]any{
				"type":        "boolean",
				"description": "True if the student's message shows confusion or a misconception",
			},
			"explanation_quality_score": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"maximum":     10,
				"description": "How clear and correct the answer was for this student",
			},
			"content_coverage_gap": map[string]any{
				"type":        "boolean",
				"description": "True if the curriculum context did not cover what was asked",
			},
			"inferred_topic": map[string]any{
				"type":        "string",
				"description": "Short curriculum topic label, e.g. \"binary trees\"",
			},
		},
		"required": []any{
			"question_difficulty", "detected_confusion", "explanation_quality_score",
			"content_coverage_gap", "inferred_topic",
		},
		"additionalProperties": false,
	},
}

// ImprovementSchema constrains the classification of a negative rating.
var ImprovementSchema = &llm.Schema{
	Name:        "system-improvement",
	Description: "Classification of a student complaint into an actionable improvement",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"improvement_type": map[string]any{"type": "string", "enum": ImprovementTypes},
			"affected_topic":   map[string]any{"type": "string"},
			"suggested_fix": map[string]any{
				"type":        "string",
				"description": "One concrete change to content, retrieval or prompting",
			},
			"priority_level": map[string]any{"type": "string", "enum": Priorities},
		},
		"required":             []any{"improvement_type", "affected_topic", "suggested_fix", "priority_level"},
		"additionalProperties": false,
	},
}
