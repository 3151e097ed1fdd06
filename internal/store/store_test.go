package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.ProfileRepo().Put(context.Background(), &LearnerProfile{UserID: "u1", SkillLevel: "beginner"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	p, err := s.ProfileRepo().Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "beginner", p.SkillLevel)
}

func TestClosedStore(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.ProfileRepo().Get(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrStoreClosed)
	err = s.EventRepo().AppendLLMRequest(context.Background(), LLMRequestEventData{})
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestSequenceCounter_Monotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var prev int64
	for i := 0; i < 5; i++ {
		n, err := s.nextSequence(ctx)
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "anthropic", Model: "claude-haiku-4-5", Purpose: "intent", InputTokens: 100, OutputTokens: 20, LatencyMs: 300, Success: true},
		{Provider: "anthropic", Model: "claude-haiku-4-5", Purpose: "answer:stream", InputTokens: 900, OutputTokens: 400, LatencyMs: 2000, Success: true, RequestBody: "[user]\nwhat is a heap", ResponseBody: "A heap is..."},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "intent", InputTokens: 80, OutputTokens: 10, LatencyMs: 100, Success: false, ErrorMessage: "rate limited"},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "gpt-4o-mini", all[0].Model, "newest first")
	assert.False(t, all[0].Success)
	assert.Equal(t, "rate limited", all[0].ErrorMessage)

	limited, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 1, Purpose: "intent", Before: all[0].Sequence})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "claude-haiku-4-5", limited[0].Model)

	got, err := repo.GetLLMEvent(ctx, all[1].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A heap is...", got.ResponseBody)

	missing, err := repo.GetLLMEvent(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "intent", byPurpose[0].Purpose)
	assert.Equal(t, 2, byPurpose[0].Calls)
	assert.Equal(t, 180, byPurpose[0].InputTokens)
	assert.Equal(t, int64(200), byPurpose[0].AvgLatencyMs)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "claude-haiku-4-5", byModel[0].Model)
	assert.Equal(t, 420, byModel[0].OutputTokens)
}

func TestProfileRepo_PutOverwrites(t *testing.T) {
	s := openTestStore(t)
	repo := s.ProfileRepo()
	ctx := context.Background()

	p, err := repo.Get(ctx, "ada")
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, repo.Put(ctx, &LearnerProfile{
		UserID:              "ada",
		SkillLevel:          "beginner",
		LearningStyle:       "example-driven",
		ConfidenceLevel:     "low",
		IntentDistribution:  IntentDistribution{Learning: 70, Revision: 10, Interview: 10, Exploration: 10},
		WeakConceptClusters: []string{"recursion"},
	}))
	require.NoError(t, repo.Put(ctx, &LearnerProfile{
		UserID:              "ada",
		SkillLevel:          "intermediate",
		LearningStyle:       "example-driven",
		ConfidenceLevel:     "medium",
		IntentDistribution:  IntentDistribution{Learning: 50, Revision: 20, Interview: 20, Exploration: 10},
		WeakConceptClusters: []string{"recursion", "graphs"},
	}))

	p, err = repo.Get(ctx, "ada")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "intermediate", p.SkillLevel)
	assert.Equal(t, []string{"recursion", "graphs"}, p.WeakConceptClusters)
	assert.InDelta(t, 20, p.IntentDistribution.Interview, 0.001)
	assert.False(t, p.LastUpdated.IsZero())
}

func TestSignalRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.SignalRepo()
	ctx := context.Background()

	for i, topic := range []string{"arrays", "trees", "graphs"} {
		require.NoError(t, repo.AppendSignal(ctx, &LearningSignal{
			SessionID: "s1",
			UserID:    "u1",
			Metrics: SignalMetrics{
				QuestionDifficulty:      "basic",
				RetrievalConfidence:     0.9,
				DetectedConfusion:       i == 1,
				ExplanationQualityScore: 7,
			},
			Context: SignalContext{Topic: topic, Intent: "concept_learning"},
		}))
	}

	recent, err := repo.RecentSignals(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "graphs", recent[0].Context.Topic)
	assert.Equal(t, "trees", recent[1].Context.Topic)
	assert.True(t, recent[1].Metrics.DetectedConfusion)
	assert.NotEmpty(t, recent[0].ID)

	require.NoError(t, repo.AppendImprovement(ctx, &SystemImprovement{
		ImprovementType: "content_gap",
		AffectedTopic:   "graphs",
		SuggestedFix:    "add a BFS walkthrough",
		PriorityLevel:   "high",
		UserID:          "u1",
		SessionID:       "s1",
	}))
	imps, err := repo.RecentImprovements(ctx, 10)
	require.NoError(t, err)
	require.Len(t, imps, 1)
	assert.Equal(t, "content_gap", imps[0].ImprovementType)
}

func TestTurnRepo_RecentByUser(t *testing.T) {
	s := openTestStore(t)
	repo := s.TurnRepo()
	ctx := context.Background()

	for _, tc := range []struct{ user, msg string }{
		{"u1", "what is a stack"},
		{"u2", "hello"},
		{"u1", "and a queue?"},
	} {
		require.NoError(t, repo.Append(ctx, &Turn{UserID: tc.user, UserMessage: tc.msg, AIResponse: "answer"}))
	}

	turns, err := repo.RecentByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "and a queue?", turns[0].UserMessage)
	assert.Greater(t, turns[0].Sequence, turns[1].Sequence)

	none, err := repo.RecentByUser(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFeedbackRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.FeedbackRepo()
	ctx := context.Background()

	require.Error(t, repo.Append(ctx, &FeedbackRating{UserID: "u1", Rating: 0}))

	fr := &FeedbackRating{UserID: "u1", SessionID: "s1", Rating: -1, Comment: "too vague"}
	require.NoError(t, repo.Append(ctx, fr))
	assert.NotEmpty(t, fr.ID)

	got, err := repo.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, -1, got[0].Rating)
	assert.Equal(t, "too vague", got[0].Comment)
}

func TestArtifactRepo_LatestPointerAndHistory(t *testing.T) {
	s := openTestStore(t)
	repo := s.ArtifactRepo()
	ctx := context.Background()

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	base := time.Now()
	require.NoError(t, repo.Publish(ctx, ArtifactRecord{Version: "v1", CreatedAt: base, Data: json.RawMessage(`{"n":1}`)}))
	require.NoError(t, repo.Publish(ctx, ArtifactRecord{Version: "v2", CreatedAt: base.Add(time.Second), Data: json.RawMessage(`{"n":2}`)}))

	latest, err = repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "v2", latest.Version)
	assert.JSONEq(t, `{"n":2}`, string(latest.Data))

	old, err := repo.Get(ctx, "v1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(old.Data))

	_, err = repo.Get(ctx, "v9")
	assert.ErrorIs(t, err, ErrNotFound)

	// Versions are immutable.
	assert.Error(t, repo.Publish(ctx, ArtifactRecord{Version: "v1", Data: json.RawMessage(`{"n":3}`)}))
	latest, err = repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", latest.Version)

	list, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "v2", list[0].Version)

	assert.Error(t, repo.Publish(ctx, ArtifactRecord{Version: "v3", Data: json.RawMessage(`not json`)}))
}

func TestQuestionRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.QuestionRepo()
	ctx := context.Background()

	n, err := repo.Upsert(ctx, []Question{
		{ID: "go-2", Subject: "go", Text: "What is a goroutine?", Difficulty: "Beginner", Topic: "concurrency", AnswerVariants: []string{"a lightweight thread"}},
		{ID: "go-1", Subject: "go", Text: "Explain interfaces.", Difficulty: "Intermediate", Topic: "types"},
		{ID: "py-1", Subject: "python", Text: "What is the GIL?", Difficulty: "Advanced", Topic: "runtime"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = repo.Upsert(ctx, []Question{
		{ID: "go-1", Subject: "go", Text: "Explain implicit interfaces.", Difficulty: "Intermediate", Topic: "types"},
	})
	require.NoError(t, err)

	qs, err := repo.BySubject(ctx, "go")
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "go-1", qs[0].ID)
	assert.Equal(t, "Explain implicit interfaces.", qs[0].Text)
	assert.Empty(t, qs[0].AnswerVariants)
	assert.Equal(t, []string{"a lightweight thread"}, qs[1].AnswerVariants)

	none, err := repo.BySubject(ctx, "rust")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSessionRepo_OptimisticUpdate(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	ms := &MockSession{
		ID:        "sess-1",
		UserID:    "u1",
		Subject:   "go",
		Questions: []Question{{ID: "q1", Text: "What is a slice?", Difficulty: "Beginner", Topic: "types"}},
		Status:    "in_progress",
	}
	require.NoError(t, repo.Create(ctx, ms))

	_, err := repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	second, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)

	first.Answers = append(first.Answers, AnswerRecord{QuestionID: "q1", UserAnswer: "a view over an array", Evaluation: Evaluation{Level: "Good"}})
	first.CurrentIndex = 1
	first.Status = "completed"
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 1, first.Revision)

	second.CurrentIndex = 1
	err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	require.Len(t, got.Answers, 1)
	assert.Equal(t, "Good", got.Answers[0].Evaluation.Level)
	assert.Nil(t, got.Report)

	got.Status = "finalized"
	got.Report = json.RawMessage(`{"overall_score":75}`)
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"overall_score":75}`, string(got.Report))
}

func TestChunkRepo(t *testing.T) {
	s := openTestStore(t)
	repo := s.ChunkRepo()
	ctx := context.Background()

	require.Error(t, repo.Upsert(ctx, Chunk{ID: "a#0"}))

	require.NoError(t, repo.Upsert(ctx, Chunk{ID: "a#0", Source: "a.md", Type: "concept", Content: "x", ContentHash: "h0", Embedding: []byte{1, 2, 3, 4}}))
	require.NoError(t, repo.Upsert(ctx, Chunk{ID: "a#1", Source: "a.md", Type: "concept", Content: "y", ContentHash: "h1", Embedding: []byte{1, 2, 3, 4}}))
	require.NoError(t, repo.Upsert(ctx, Chunk{ID: "b#0", Source: "b.md", Type: "example", Content: "z", ContentHash: "h2", Embedding: []byte{1, 2, 3, 4}}))
	require.NoError(t, repo.Upsert(ctx, Chunk{ID: "a#1", Source: "a.md", Type: "concept", Content: "y2", ContentHash: "h1b", Embedding: []byte{5, 6, 7, 8}}))

	hashes, err := repo.Hashes(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a#0": "h0", "a#1": "h1b"}, hashes)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, repo.Delete(ctx, "a#0", "b#0"))
	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "y2", all[0].Content)
	assert.Equal(t, []byte{5, 6, 7, 8}, all[0].Embedding)
}

func TestUsageRepo_LimitIsEnforced(t *testing.T) {
	s := openTestStore(t)
	repo := s.UsageRepo()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, ok, err := repo.Increment(ctx, "u1", "2026-10-19", 3)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, n)
	}

	n, ok, err := repo.Increment(ctx, "u1", "2026-10-19", 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, n)

	// A new day starts from zero.
	n, ok, err = repo.Increment(ctx, "u1", "2026-10-20", 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	count, err := repo.Count(ctx, "u2", "2026-10-19")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUsageRepo_ConcurrentIncrementsDoNotUnderCount(t *testing.T) {
	s := openTestStore(t)
	repo := s.UsageRepo()
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.Increment(ctx, "u1", "2026-10-19", 15)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 15, accepted)
	count, err := repo.Count(ctx, "u1", "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, 15, count)
}

func TestErrNotFoundWrapping(t *testing.T) {
	s := openTestStore(t)
	_, err := s.SessionRepo().Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}
