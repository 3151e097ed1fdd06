// Package observer turns completed chat turns and explicit ratings into
// learning signals and improvement records. All analysis is best-effort.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/abhisek/mentorloop/internal/tasks"
)

// Prompt truncation limits, in runes.
const (
	maxUserChars     = 1000
	maxResponseChars = 2000
)

// Submitter schedules background work.
type Submitter interface {
	Submit(name string, fn tasks.Func) bool
}

// Interaction is one completed (or interrupted) chat turn.
type Interaction struct {
	UserID              string
	SessionID           string
	UserMessage         string
	AIResponse          string
	Intent              string
	RetrievalConfidence float64
}

// Observer records a LearningSignal per turn.
type Observer struct {
	provider llm.Provider
	signals  store.SignalRepo
	queue    Submitter
	logger   *slog.Logger
}

// New creates an Observer.
func New(provider llm.Provider, signals store.SignalRepo, queue Submitter, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{provider: provider, signals: signals, queue: queue, logger: logger.With("component", "observer")}
}

// Dispatch schedules Observe on the background queue and returns at once.
func (o *Observer) Dispatch(in Interaction) {
	o.queue.Submit("learning-observer", func(ctx context.Context) error {
		return o.Observe(ctx, in)
	})
}

type signalOutput struct {
	QuestionDifficulty      string `json:"question_difficulty"`
	DetectedConfusion       bool   `json:"detected_confusion"`
	ExplanationQualityScore int    `json:"explanation_quality_score"`
	ContentCoverageGap      bool   `json:"content_coverage_gap"`
	InferredTopic           string `json:"inferred_topic"`
}

// Observe analyzes one turn and appends the resulting signal. It makes a
// single attempt; the caller logs and drops any error.
func (o *Observer) Observe(ctx context.Context, in Interaction) error {
	ctx = llm.SingleAttempt(llm.WithPurpose(ctx, "learning-observer"))
	resp, err := o.provider.Generate(ctx, llm.Request{
		System:      observerPrompt,
		Messages:    llm.UserPrompt(buildObservation(in)),
		Schema:      SignalSchema,
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		return fmt.Errorf("analyze turn: %w", err)
	}

	var out signalOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return fmt.Errorf("parse signal: %w", err)
	}

	return o.signals.AppendSignal(ctx, &store.LearningSignal{
		SessionID: in.SessionID,
		UserID:    in.UserID,
		Metrics: store.SignalMetrics{
			QuestionDifficulty:      out.QuestionDifficulty,
			RetrievalConfidence:     in.RetrievalConfidence,
			DetectedConfusion:       out.DetectedConfusion,
			ExplanationQualityScore: out.ExplanationQualityScore,
			ContentCoverageGap:      out.ContentCoverageGap,
		},
		Context: store.SignalContext{
			Topic:  strings.TrimSpace(out.InferredTopic),
			Intent: in.Intent,
		},
	})
}

const observerPrompt = `You review tutoring exchanges between a computer science student and an AI tutor.
Judge the difficulty of the question, whether the student shows confusion, how good the answer was for this student (1 = useless, 10 = excellent), and whether the tutor lacked curriculum material on the topic.
Be strict and consistent.`

func buildObservation(in Interaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Detected intent: %s\n", in.Intent)
	fmt.Fprintf(&b, "Retrieval confidence: %.2f\n\n", in.RetrievalConfidence)
	fmt.Fprintf(&b, "Student:\n%s\n\n", truncate(in.UserMessage, maxUserChars))
	fmt.Fprintf(&b, "Tutor:\n%s\n", truncate(in.AIResponse, maxResponseChars))
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
