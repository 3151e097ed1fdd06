package intent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Success(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"intent":"quick_revision","search_terms":"binary search summary overview key points","strategy":"wants a refresher"}`),
	})
	c := NewClassifier(mock, DefaultConfig(), nil)

	profile := &store.LearnerProfile{SkillLevel: "beginner", WeakConceptClusters: []string{"recursion", "pointers"}}
	got := c.Classify(context.Background(), "revise binary search", profile)

	assert.Equal(t, QuickRevision, got.Intent)
	assert.Equal(t, "binary search summary overview key points", got.SearchTerms)

	require.Len(t, mock.Calls, 1)
	call := mock.Calls[0]
	assert.Equal(t, ClassificationSchema, call.Schema)
	assert.Contains(t, call.Messages[0].Content, "revise binary search")
	assert.Contains(t, call.Messages[0].Content, "recursion, pointers")
}

func TestClassify_FallsBack(t *testing.T) {
	tests := []struct {
		name string
		resp llm.MockResponse
	}{
		{"provider error", llm.MockResponse{Err: errors.New("boom")}},
		{"label outside taxonomy", llm.MockResponse{Content: json.RawMessage(`{"intent":"chit_chat","search_terms":"x","strategy":"y"}`)}},
		{"malformed json", llm.MockResponse{Content: json.RawMessage(`{"intent":`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(llm.NewMockProvider(tt.resp), DefaultConfig(), nil)
			got := c.Classify(context.Background(), "what is a heap", nil)
			assert.Equal(t, Fallback("what is a heap"), got)
			assert.Equal(t, ExploratoryQuestion, got.Intent)
			assert.Equal(t, FallbackStrategy, got.Strategy)
		})
	}
}

func TestClassify_EmptyQuerySkipsModel(t *testing.T) {
	mock := llm.NewMockProvider()
	got := NewClassifier(mock, DefaultConfig(), nil).Classify(context.Background(), "  ", nil)
	assert.Equal(t, ExploratoryQuestion, got.Intent)
	assert.Zero(t, mock.CallCount())
}

func TestClassify_BlankRewriteKeepsQuery(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"intent":"problem_solving","search_terms":" ","strategy":"stuck on code"}`),
	})
	got := NewClassifier(mock, DefaultConfig(), nil).Classify(context.Background(), "fix my loop", nil)
	assert.Equal(t, ProblemSolving, got.Intent)
	assert.Equal(t, "fix my loop", got.SearchTerms)
}

func TestIntentValid(t *testing.T) {
	for _, i := range All {
		assert.True(t, i.Valid(), i)
	}
	assert.False(t, Intent("other").Valid())
}
