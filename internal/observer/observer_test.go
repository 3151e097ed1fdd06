package observer

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/abhisek/mentorloop/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*store.Store, *tasks.Queue) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "observer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, tasks.New(tasks.DefaultConfig(), nil)
}

func drain(t *testing.T, q *tasks.Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Close(ctx))
}

const signalJSON = `{"question_difficulty":"basic","detected_confusion":true,"explanation_quality_score":6,"content_coverage_gap":false,"inferred_topic":" linked lists "}`

func TestObserver_DispatchAppendsSignal(t *testing.T) {
	s, q := setup(t)
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(signalJSON)})
	o := New(mock, s.SignalRepo(), q, nil)

	o.Dispatch(Interaction{
		UserID:              "u1",
		SessionID:           "sess",
		UserMessage:         "why does my linked list lose nodes?",
		AIResponse:          strings.Repeat("x", 5000),
		Intent:              "problem_solving",
		RetrievalConfidence: 0.42,
	})
	drain(t, q)

	sigs, err := s.SignalRepo().RecentSignals(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	sig := sigs[0]
	assert.Equal(t, "u1", sig.UserID)
	assert.Equal(t, "basic", sig.Metrics.QuestionDifficulty)
	assert.True(t, sig.Metrics.DetectedConfusion)
	assert.InDelta(t, 0.42, sig.Metrics.RetrievalConfidence, 1e-9)
	assert.Equal(t, "linked lists", sig.Context.Topic)
	assert.Equal(t, "problem_solving", sig.Context.Intent)

	require.Len(t, mock.Calls, 1)
	assert.Less(t, len(mock.Calls[0].Messages[0].Content), 2500, "response is truncated in the prompt")
}

func TestObserver_FailureDropsSignal(t *testing.T) {
	s, q := setup(t)
	mock := llm.NewMockProvider(llm.MockResponse{Err: errors.New("overloaded")})
	o := New(mock, s.SignalRepo(), q, nil)

	o.Dispatch(Interaction{UserID: "u1", UserMessage: "hi", AIResponse: "hello"})
	drain(t, q)

	sigs, err := s.SignalRepo().RecentSignals(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, sigs)
	assert.Equal(t, 1, mock.CallCount(), "no retries")
}

func TestObserver_NotRetriedByProviderStack(t *testing.T) {
	s, q := setup(t)
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("overloaded")}},
		llm.MockResponse{Content: json.RawMessage(signalJSON)},
	)
	p := llm.Decorate(mock, llm.DefaultConfig(), nil, nil)
	o := New(p, s.SignalRepo(), q, nil)

	require.Error(t, o.Observe(context.Background(), Interaction{UserID: "u1", UserMessage: "hi", AIResponse: "hello"}))
	drain(t, q)
	assert.Equal(t, 1, mock.CallCount())

	sigs, err := s.SignalRepo().RecentSignals(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func TestFeedbackRecorder(t *testing.T) {
	improvement := `{"improvement_type":"explanation_issue","affected_topic":"recursion","suggested_fix":"add a call-stack diagram","priority_level":"medium"}`

	t.Run("positive rating is only stored", func(t *testing.T) {
		s, q := setup(t)
		mock := llm.NewMockProvider()
		f := NewFeedbackRecorder(mock, s.FeedbackRepo(), s.SignalRepo(), q, nil)

		require.NoError(t, f.Record(context.Background(), &store.FeedbackRating{UserID: "u1", Rating: ThumbsUp}))
		drain(t, q)

		got, err := s.FeedbackRepo().Recent(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Zero(t, mock.CallCount())
	})

	t.Run("negative rating is analyzed", func(t *testing.T) {
		s, q := setup(t)
		mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(improvement)})
		f := NewFeedbackRecorder(mock, s.FeedbackRepo(), s.SignalRepo(), q, nil)

		r := &store.FeedbackRating{UserID: "u1", SessionID: "s1", Rating: ThumbsDown, Comment: "too abstract",
			UserMessage: "explain recursion", AIResponse: "recursion is recursion"}
		require.NoError(t, f.Record(context.Background(), r))
		drain(t, q)

		imps, err := s.SignalRepo().RecentImprovements(context.Background(), 10)
		require.NoError(t, err)
		require.Len(t, imps, 1)
		assert.Equal(t, "explanation_issue", imps[0].ImprovementType)
		assert.Equal(t, r.ID, imps[0].FeedbackID)
		assert.Contains(t, mock.Calls[0].Messages[0].Content, "too abstract")
	})

	t.Run("analysis is not retried by the provider stack", func(t *testing.T) {
		s, q := setup(t)
		mock := llm.NewMockProvider(
			llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("overloaded")}},
			llm.MockResponse{Content: json.RawMessage(improvement)},
		)
		f := NewFeedbackRecorder(llm.Decorate(mock, llm.DefaultConfig(), nil, nil), s.FeedbackRepo(), s.SignalRepo(), q, nil)

		r := &store.FeedbackRating{UserID: "u1", Rating: ThumbsDown, Comment: "wrong"}
		require.NoError(t, f.Record(context.Background(), r))
		drain(t, q)

		assert.Equal(t, 1, mock.CallCount())
		imps, err := s.SignalRepo().RecentImprovements(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, imps)
	})

	t.Run("invalid rating", func(t *testing.T) {
		s, q := setup(t)
		f := NewFeedbackRecorder(llm.NewMockProvider(), s.FeedbackRepo(), s.SignalRepo(), q, nil)
		err := f.Record(context.Background(), &store.FeedbackRating{UserID: "u1", Rating: 0})
		assert.ErrorIs(t, err, ErrInvalidRating)
		drain(t, q)
	})
}
