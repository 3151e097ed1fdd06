package interview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/store"
)

// EvaluationSchema constrains the grading output.
var EvaluationSchema = &llm.Schema{
	Name:        "interview-evaluation",
	Description: "Grade of a candidate's answer against expert answers",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level": map[string]any{
				"type": "string",
				"enum": []any{LevelExcellent, LevelGood, LevelAverage, LevelWeak},
			},
			"strengths": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"missingConcepts": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Concepts from the expert answers the candidate did not cover",
			},
			"suggestions": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"logicFlow": map[string]any{
				"type":        "string",
				"description": "One or two sentences on how well the answer is structured",
			},
		},
		"required":             []any{"level", "strengths", "missingConcepts", "suggestions", "logicFlow"},
		"additionalProperties": false,
	},
}

// Grader evaluates answers with the generative model.
type Grader interface {
	Grade(ctx context.Context, q store.Question, answer string) (store.Evaluation, error)
}

// LLMGrader grades answers with one structured model call.
type LLMGrader struct {
	provider llm.Provider
}

// NewLLMGrader creates an LLMGrader.
func NewLLMGrader(provider llm.Provider) *LLMGrader {
	return &LLMGrader{provider: provider}
}

func (g *LLMGrader) Grade(ctx context.Context, q store.Question, answer string) (store.Evaluation, error) {
	ctx = llm.WithPurpose(ctx, "interview-grading")

	var buf bytes.Buffer
	if err := gradingTemplate.Execute(&buf, struct {
		Q      store.Question
		Answer string
	}{q, answer}); err != nil {
		return store.Evaluation{}, fmt.Errorf("build grading prompt: %w", err)
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      gradingSystemPrompt,
		Messages:    llm.UserPrompt(buf.String()),
		Schema:      EvaluationSchema,
		MaxTokens:   512,
		Temperature: 0,
	})
	if err != nil {
		return store.Evaluation{}, err
	}

	var ev store.Evaluation
	if err := json.Unmarshal(resp.Content, &ev); err != nil {
		return store.Evaluation{}, fmt.Errorf("parse evaluation: %w", err)
	}
	return ev, nil
}

const gradingSystemPrompt = `You are a strict technical interviewer grading one answer.
Compare the candidate's answer with the expert answers. Paraphrases count; missing key ideas do not.
- Excellent: complete, correct and well structured.
- Good: correct with minor gaps.
- Average: partially correct or missing important ideas.
- Weak: mostly wrong, off-topic or empty.
Keep each list item under 15 words.`

var gradingTemplate = template.Must(template.New("grading").Parse(`Topic: {{.Q.Topic}}
Difficulty: {{.Q.Difficulty}}
Question: {{.Q.Text}}

Expert answers:
{{range .Q.AnswerVariants}}- {{.}}
{{else}}- (none provided, grade on technical correctness)
{{end}}
Candidate answer:
{{.Answer}}`))

// shortAnswerEvaluation is returned for answers too short to grade.
func shortAnswerEvaluation() store.Evaluation {
	return store.Evaluation{
		Level:           LevelWeak,
		Strengths:       []string{},
		MissingConcepts: []string{"A substantive answer"},
		Suggestions:     []string{"Answer in full sentences and explain your reasoning."},
		LogicFlow:       "The answer is too short to evaluate.",
	}
}

// neutralEvaluation is recorded when grading fails.
func neutralEvaluation() store.Evaluation {
	return store.Evaluation{
		Level:           LevelAverage,
		Strengths:       []string{},
		MissingConcepts: []string{},
		Suggestions:     []string{"Automatic grading was unavailable. Compare your answer with the reference material."},
		LogicFlow:       "Not evaluated.",
	}
}
