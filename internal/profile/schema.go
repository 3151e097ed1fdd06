package profile

import "github.com/abhisek/mentorloop/internal/llm"

// Allowed profile values.
var (
	SkillLevels      = []string{"beginner", "intermediate", "advanced"}
	LearningStyles   = []string{"example-driven", "theory-driven", "problem-first", "revision-oriented"}
	ConfidenceLevels = []string{"low", "medium", "high"}
)

func enum(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func share(desc string) map[string]any {
	return map[string]any{"type": "number", "minimum": 0, "maximum": 100, "description": desc}
}

// ProfileSchema constrains the inferred learner profile.
var ProfileSchema = &llm.Schema{
	Name:        "learner-profile-update",
	Description: "Gradual update of a learner profile inferred from recent behavior",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"has_signal": map[string]any{
				"type":        "boolean",
				"description": "False when the interactions say nothing about the learner",
			},
			"skill_level":      map[string]any{"type": "string", "enum": enum(SkillLevels)},
			"learning_style":   map[string]any{"type": "string", "enum": enum(LearningStyles)},
			"confidence_level": map[string]any{"type": "string", "enum": enum(ConfidenceLevels)},
			"intent_distribution": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"learning":    share("Percent of turns spent learning new concepts"),
					"revision":    share("Percent of turns spent revising"),
					"interview":   share("Percent of turns preparing for interviews"),
					"exploration": share("Percent of open-ended exploration"),
				},
				"required":             []any{"learning", "revision", "interview", "exploration"},
				"additionalProperties": false,
			},
			"weak_concept_clusters": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"maxItems":    8,
				"description": "Topics the learner keeps struggling with",
			},
		},
		"required": []any{
			"has_signal", "skill_level", "learning_style", "confidence_level",
			"intent_distribution", "weak_concept_clusters",
		},
		"additionalProperties": false,
	},
}
