package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/oklog/ulid/v2"
)

const tableFeedback = "feedback_ratings"

type feedbackRepo struct {
	s *Store
}

func (r *feedbackRepo) Append(ctx context.Context, fr *FeedbackRating) error {
	if fr.Rating != 1 && fr.Rating != -1 {
		return fmt.Errorf("append feedback: rating must be +1 or -1, got %d", fr.Rating)
	}
	if fr.ID == "" {
		fr.ID = ulid.Make().String()
	}
	if fr.CreatedAt.IsZero() {
		fr.CreatedAt = time.Now()
	}
	_, err := r.s.exec(ctx, builder().Insert(tableFeedback).
		Columns("id", "user_id", "session_id", "rating", "comment", "user_message", "ai_response", "created_at").
		Values(fr.ID, fr.UserID, fr.SessionID, fr.Rating, fr.Comment, fr.UserMessage, fr.AIResponse, toMillis(fr.CreatedAt)))
	if err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	return nil
}

func (r *feedbackRepo) Recent(ctx context.Context, limit int) ([]FeedbackRating, error) {
	sel := builder().Select("id", "user_id", "session_id", "rating", "comment", "user_message", "ai_response", "created_at").
		From(entsql.Table(tableFeedback)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}

	var out []FeedbackRating
	err := r.s.query(ctx, sel, func(rows *sql.Rows) error {
		var fr FeedbackRating
		var created int64
		if err := rows.Scan(&fr.ID, &fr.UserID, &fr.SessionID, &fr.Rating, &fr.Comment,
			&fr.UserMessage, &fr.AIResponse, &created); err != nil {
			return err
		}
		fr.CreatedAt = fromMillis(created)
		out = append(out, fr)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	return out, nil
}
