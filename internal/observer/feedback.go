package observer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/store"
)

// Rating values.
const (
	ThumbsUp   = 1
	ThumbsDown = -1
)

// ErrInvalidRating is returned for ratings other than ThumbsUp or ThumbsDown.
var ErrInvalidRating = errors.New("rating must be +1 or -1")

// FeedbackRecorder stores explicit ratings and analyzes negative ones.
type FeedbackRecorder struct {
	provider llm.Provider
	ratings  store.FeedbackRepo
	signals  store.SignalRepo
	queue    Submitter
	logger   *slog.Logger
}

// NewFeedbackRecorder creates a FeedbackRecorder.
func NewFeedbackRecorder(provider llm.Provider, ratings store.FeedbackRepo, signals store.SignalRepo, queue Submitter, logger *slog.Logger) *FeedbackRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackRecorder{
		provider: provider,
		ratings:  ratings,
		signals:  signals,
		queue:    queue,
		logger:   logger.With("component", "feedback"),
	}
}

// Record stores the rating. A negative rating also schedules an
// improvement analysis in the background.
func (f *FeedbackRecorder) Record(ctx context.Context, r *store.FeedbackRating) error {
	if r.Rating != ThumbsUp && r.Rating != ThumbsDown {
		return ErrInvalidRating
	}
	if err := f.ratings.Append(ctx, r); err != nil {
		return err
	}
	if r.Rating == ThumbsDown {
		rating := *r
		f.queue.Submit("feedback-analysis", func(ctx context.Context) error {
			return f.Analyze(ctx, &rating)
		})
	}
	return nil
}

type improvementOutput struct {
	ImprovementType string `json:"improvement_type"`
	AffectedTopic   string `json:"affected_topic"`
	SuggestedFix    string `json:"suggested_fix"`
	PriorityLevel   string `json:"priority_level"`
}

// Analyze classifies a negative rating into a SystemImprovement.
func (f *FeedbackRecorder) Analyze(ctx context.Context, r *store.FeedbackRating) error {
	ctx = llm.SingleAttempt(llm.WithPurpose(ctx, "feedback-analysis"))
	resp, err := f.provider.Generate(ctx, llm.Request{
		System:      feedbackPrompt,
		Messages:    llm.UserPrompt(buildComplaint(r)),
		Schema:      ImprovementSchema,
		MaxTokens:   256,
		Temperature: 0,
	})
	if err != nil {
		return fmt.Errorf("analyze feedback %s: %w", r.ID, err)
	}

	var out improvementOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return fmt.Errorf("parse improvement: %w", err)
	}
	return f.signals.AppendImprovement(ctx, &store.SystemImprovement{
		ImprovementType: out.ImprovementType,
		AffectedTopic:   out.AffectedTopic,
		SuggestedFix:    out.SuggestedFix,
		PriorityLevel:   out.PriorityLevel,
		FeedbackID:      r.ID,
		UserID:          r.UserID,
		SessionID:       r.SessionID,
	})
}

const feedbackPrompt = `A student gave a tutor answer a thumbs down. Classify the complaint:
- content_gap: the curriculum lacks material on the topic.
- retrieval_issue: relevant material exists but the wrong material was used.
- explanation_issue: the material was right but the explanation was unclear, wrong or pitched at the wrong level.
- ambiguity_issue: the question was ambiguous and the tutor guessed instead of clarifying.
Pick the priority by how many students the problem is likely to hurt.`

func buildComplaint(r *store.FeedbackRating) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Student question:\n%s\n\n", truncate(r.UserMessage, maxUserChars))
	fmt.Fprintf(&b, "Tutor answer:\n%s\n\n", truncate(r.AIResponse, maxResponseChars))
	comment := strings.TrimSpace(r.Comment)
	if comment == "" {
		comment = "(no comment)"
	}
	fmt.Fprintf(&b, "Student comment: %s\n", comment)
	return b.String()
}
