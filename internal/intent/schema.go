package intent

import "github.com/abhisek/mentorloop/internal/llm"

func intentEnum() []any {
	out := make([]any, len(All))
	for i, v := range All {
		out[i] = string(v)
	}
	return out
}

// ClassificationSchema constrains the classifier output to one intent label,
// a search query and a short rationale.
var ClassificationSchema = &llm.Schema{
	Name:        "intent-classification",
	Description: "Intent label and search-optimized rewrite of a learner query",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intent": map[string]any{
				"type":        "string",
				"enum":        intentEnum(),
				"description": "The single best-matching intent label",
			},
			"search_terms": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "The query rewritten for semantic search over curriculum content",
			},
			"strategy": map[string]any{
				"type":        "string",
				"description": "One sentence on why this intent and rewrite were chosen",
			},
		},
		"required":             []any{"intent", "search_terms", "strategy"},
		"additionalProperties": false,
	},
}
