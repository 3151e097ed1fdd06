package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/abhisek/mentorloop/internal/chat"
	"github.com/abhisek/mentorloop/internal/generation"
	"github.com/abhisek/mentorloop/internal/interview"
	"github.com/abhisek/mentorloop/internal/observer"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTutor struct {
	got chat.Request
	err error
}

func (f *fakeTutor) Serve(_ context.Context, req chat.Request, sink generation.Sink) (*chat.Reply, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	sink.Write("A heap is a tree-shaped priority queue.")
	sink.Close()
	return &chat.Reply{SessionID: "sess-1", Intent: "concept_learning"}, nil
}

type fakeRater struct {
	got []*store.FeedbackRating
}

func (f *fakeRater) Record(_ context.Context, r *store.FeedbackRating) error {
	if r.Rating != observer.ThumbsUp && r.Rating != observer.ThumbsDown {
		return observer.ErrInvalidRating
	}
	r.ID = fmt.Sprintf("fb-%d", len(f.got)+1)
	f.got = append(f.got, r)
	return nil
}

type goodGrader struct{}

func (goodGrader) Grade(context.Context, store.Question, string) (store.Evaluation, error) {
	return store.Evaluation{Level: interview.LevelGood}, nil
}

func newServer(t *testing.T) (*Server, *fakeTutor, *fakeRater) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.QuestionRepo().Upsert(context.Background(), []store.Question{
		{ID: "go-1", Subject: "go", Text: "What is a goroutine?", Difficulty: interview.Beginner, Topic: "concurrency"},
	})
	require.NoError(t, err)

	m := interview.NewMachine(s.QuestionRepo(), s.SessionRepo(), goodGrader{}, interview.DefaultDrawConfig(), nil)
	tutor, rater := &fakeTutor{}, &fakeRater{}
	return NewServer(tutor, rater, m, "test"), tutor, rater
}

func call(t *testing.T, s *Server, name string, args map[string]any) *ToolResult {
	t.Helper()
	res, err := s.CallTool(context.Background(), name, args)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestListTools(t *testing.T) {
	s, _, _ := newServer(t)
	var names []string
	for _, tool := range s.ListTools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Equal(t, []string{"tutor_ask", "tutor_feedback", "interview_start", "interview_submit", "interview_finalize"}, names)
}

func TestTutorAsk(t *testing.T) {
	s, tutor, _ := newServer(t)

	res := call(t, s, "tutor_ask", map[string]any{"user_id": "u1", "message": "what is a heap?"})
	require.False(t, res.IsError, res.Content)

	var out askResult
	require.NoError(t, json.Unmarshal([]byte(res.Content), &out))
	assert.Equal(t, "sess-1", out.SessionID)
	assert.Equal(t, "A heap is a tree-shaped priority queue.", out.Answer)
	assert.Equal(t, "u1", tutor.got.UserID)
	assert.Equal(t, "what is a heap?", tutor.got.Messages[0].Content)

	tutor.err = fmt.Errorf("wrapped: %w", chat.ErrQuotaExceeded)
	res = call(t, s, "tutor_ask", map[string]any{"user_id": "u1", "message": "again"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "quota")

	tutor.err = errors.New("disk on fire")
	_, err := s.CallTool(context.Background(), "tutor_ask", map[string]any{"user_id": "u1", "message": "again"})
	assert.Error(t, err, "unexpected failures are protocol errors")
}

func TestTutorFeedback(t *testing.T) {
	s, _, rater := newServer(t)

	res := call(t, s, "tutor_feedback", map[string]any{"user_id": "u1", "rating": "down", "comment": "too vague"})
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "fb-1")
	require.Len(t, rater.got, 1)
	assert.Equal(t, observer.ThumbsDown, rater.got[0].Rating)
	assert.Equal(t, "too vague", rater.got[0].Comment)

	assert.True(t, call(t, s, "tutor_feedback", map[string]any{"user_id": "u1", "rating": "meh"}).IsError)
	assert.True(t, call(t, s, "tutor_feedback", map[string]any{"rating": "up"}).IsError)
}

func TestInterviewFlow(t *testing.T) {
	s, _, _ := newServer(t)

	res := call(t, s, "interview_start", map[string]any{"user_id": "u1", "subject": "go"})
	require.False(t, res.IsError, res.Content)
	var start interview.StartResult
	require.NoError(t, json.Unmarshal([]byte(res.Content), &start))
	assert.Equal(t, 1, start.TotalQuestions)

	res = call(t, s, "interview_submit", map[string]any{"user_id": "intruder", "session_id": start.SessionID, "answer": "a lightweight thread"})
	assert.True(t, res.IsError)

	res = call(t, s, "interview_submit", map[string]any{"user_id": "u1", "session_id": start.SessionID, "answer": "a lightweight thread managed by the runtime"})
	require.False(t, res.IsError, res.Content)
	var sub interview.SubmitResult
	require.NoError(t, json.Unmarshal([]byte(res.Content), &sub))
	assert.True(t, sub.IsComplete)
	assert.Nil(t, sub.NextQuestion)

	res = call(t, s, "interview_finalize", map[string]any{"user_id": "u1", "session_id": start.SessionID})
	require.False(t, res.IsError, res.Content)
	var report interview.Report
	require.NoError(t, json.Unmarshal([]byte(res.Content), &report))
	assert.InDelta(t, 75.0, report.OverallScore, 1e-9)
	assert.Equal(t, interview.ReadinessJunior, report.Readiness)

	assert.True(t, call(t, s, "interview_start", map[string]any{"user_id": "u1", "subject": "haskell"}).IsError)
}

func TestUnknownTool(t *testing.T) {
	s, _, _ := newServer(t)
	assert.True(t, call(t, s, "tutor_dance", nil).IsError)
}

func TestHandleMessage_Initialize(t *testing.T) {
	s, _, _ := newServer(t)
	req := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test-client","version":"1.0.0"}}}`

	resp := s.HandleMessage(context.Background(), []byte(req))
	require.NotNil(t, resp)
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var body struct {
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "mentorloop", body.Result.ServerInfo.Name)
}
