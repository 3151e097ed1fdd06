package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const tableSessions = "mock_sessions"

type sessionRepo struct {
	s *Store
}

func (r *sessionRepo) Create(ctx context.Context, ms *MockSession) error {
	now := time.Now()
	if ms.CreatedAt.IsZero() {
		ms.CreatedAt = now
	}
	ms.UpdatedAt = now

	questions, answers, err := encodeSession(ms)
	if err != nil {
		return err
	}
	_, err = r.s.exec(ctx, builder().Insert(tableSessions).
		Columns("id", "user_id", "subject", "questions", "current_index", "answers",
			"status", "report", "revision", "created_at", "updated_at").
		Values(ms.ID, ms.UserID, ms.Subject, questions, ms.CurrentIndex, answers,
			ms.Status, nullableJSON(ms.Report), ms.Revision, toMillis(ms.CreatedAt), toMillis(ms.UpdatedAt)))
	if err != nil {
		return fmt.Errorf("create session %s: %w", ms.ID, err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*MockSession, error) {
	ms := MockSession{ID: id}
	var (
		questions, answers string
		report             *string
		created, updated   int64
	)
	err := r.s.queryRow(ctx, builder().Select(
		"user_id", "subject", "questions", "current_index", "answers",
		"status", "report", "revision", "created_at", "updated_at",
	).From(entsql.Table(tableSessions)).Where(entsql.EQ("id", id)),
		&ms.UserID, &ms.Subject, &questions, &ms.CurrentIndex, &answers,
		&ms.Status, &report, &ms.Revision, &created, &updated)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(questions), &ms.Questions); err != nil {
		return nil, fmt.Errorf("decode questions of %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(answers), &ms.Answers); err != nil {
		return nil, fmt.Errorf("decode answers of %s: %w", id, err)
	}
	if report != nil {
		ms.Report = json.RawMessage(*report)
	}
	ms.CreatedAt = fromMillis(created)
	ms.UpdatedAt = fromMillis(updated)
	return &ms, nil
}

func (r *sessionRepo) Update(ctx context.Context, ms *MockSession) error {
	questions, answers, err := encodeSession(ms)
	if err != nil {
		return err
	}
	now := time.Now()

	res, err := r.s.exec(ctx, builder().Update(tableSessions).
		Set("questions", questions).
		Set("current_index", ms.CurrentIndex).
		Set("answers", answers).
		Set("status", ms.Status).
		Set("report", nullableJSON(ms.Report)).
		Set("revision", ms.Revision+1).
		Set("updated_at", toMillis(now)).
		Where(entsql.And(entsql.EQ("id", ms.ID), entsql.EQ("revision", ms.Revision))))
	if err != nil {
		return fmt.Errorf("update session %s: %w", ms.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session %s: %w", ms.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update session %s: %w", ms.ID, ErrConflict)
	}
	ms.Revision++
	ms.UpdatedAt = now
	return nil
}

func encodeSession(ms *MockSession) (string, string, error) {
	qs := ms.Questions
	if qs == nil {
		qs = []Question{}
	}
	as := ms.Answers
	if as == nil {
		as = []AnswerRecord{}
	}
	q, err := json.Marshal(qs)
	if err != nil {
		return "", "", fmt.Errorf("encode questions: %w", err)
	}
	a, err := json.Marshal(as)
	if err != nil {
		return "", "", fmt.Errorf("encode answers: %w", err)
	}
	return string(q), string(a), nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
