package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/store"
)

// Config holds generation settings for classification calls.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxTokens: 256, Temperature: 0}
}

// Classifier maps a query to an intent with one structured model call.
type Classifier struct {
	provider llm.Provider
	cfg      Config
	logger   *slog.Logger
}

// NewClassifier creates a Classifier.
func NewClassifier(provider llm.Provider, cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{provider: provider, cfg: cfg, logger: logger.With("component", "intent")}
}

// Classify never fails: any provider or decode error yields Fallback(query).
func (c *Classifier) Classify(ctx context.Context, query string, profile *store.LearnerProfile) Result {
	res, err := c.classify(ctx, query, profile)
	if err != nil {
		c.logger.Warn("intent classification failed, using fallback", "error", err)
		return Fallback(query)
	}
	return res
}

func (c *Classifier) classify(ctx context.Context, query string, profile *store.LearnerProfile) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, fmt.Errorf("empty query")
	}
	ctx = llm.WithPurpose(ctx, "intent-classification")

	msg, err := buildUserMessage(query, profile)
	if err != nil {
		return Result{}, fmt.Errorf("build classification prompt: %w", err)
	}

	resp, err := c.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    llm.UserPrompt(msg),
		Schema:      ClassificationSchema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return Result{}, err
	}

	var out Result
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return Result{}, fmt.Errorf("parse classification: %w", err)
	}
	if !out.Intent.Valid() {
		return Result{}, fmt.Errorf("unknown intent %q", out.Intent)
	}
	out.SearchTerms = strings.TrimSpace(out.SearchTerms)
	if out.SearchTerms == "" {
		out.SearchTerms = query
	}
	return out, nil
}

const systemPrompt = `You route questions from students learning computer science and programming.

Classify the query into exactly one intent and rewrite it as a search query for curriculum retrieval:
- concept_learning: the student wants to understand an idea. Emphasize definitions and theory terms.
- quick_revision: the student wants a refresher. Append "summary overview key points".
- interview_preparation: the student is preparing for interviews. Append "interview questions common mistakes complexity".
- problem_solving: the student is stuck on a concrete task. Focus on implementation, syntax and constraints.
- exploratory_question: open-ended curiosity. Broaden the query to related topics.

Keep the strategy to one sentence.`

var userTemplate = template.Must(template.New("intent").Parse(`Query: {{.Query}}
{{with .Profile}}
Learner skill level: {{.SkillLevel}}
Learner style: {{.LearningStyle}}
{{- if .WeakConceptClusters}}
Weak areas: {{range $i, $c := .WeakConceptClusters}}{{if $i}}, {{end}}{{$c}}{{end}}
{{- end}}
{{end}}`))

func buildUserMessage(query string, profile *store.LearnerProfile) (string, error) {
	var buf bytes.Buffer
	err := userTemplate.Execute(&buf, struct {
		Query   string
		Profile *store.LearnerProfile
	}{query, profile})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
