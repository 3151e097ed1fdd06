package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/oklog/ulid/v2"
)

const tableTurns = "chat_turns"

type turnRepo struct {
	s *Store
}

func (r *turnRepo) Append(ctx context.Context, t *Turn) error {
	seqNum, err := r.s.nextSequence(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if t.ID == "" {
		t.ID = ulid.Make().String()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	t.Sequence = seqNum

	_, err = r.s.exec(ctx, builder().Insert(tableTurns).
		Columns("id", "sequence", "user_id", "session_id", "timestamp", "intent", "user_message", "ai_response").
		Values(t.ID, t.Sequence, t.UserID, t.SessionID, toMillis(t.Timestamp), t.Intent, t.UserMessage, t.AIResponse))
	if err != nil {
		return fmt.Errorf("append chat turn: %w", err)
	}
	return nil
}

func (r *turnRepo) RecentByUser(ctx context.Context, userID string, limit int) ([]Turn, error) {
	sel := builder().Select("id", "sequence", "user_id", "session_id", "timestamp", "intent", "user_message", "ai_response").
		From(entsql.Table(tableTurns)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		sel.Limit(limit)
	}

	var out []Turn
	err := r.s.query(ctx, sel, func(rows *sql.Rows) error {
		var t Turn
		var ts int64
		if err := rows.Scan(&t.ID, &t.Sequence, &t.UserID, &t.SessionID, &ts, &t.Intent, &t.UserMessage, &t.AIResponse); err != nil {
			return err
		}
		t.Timestamp = fromMillis(ts)
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query turns for %q: %w", userID, err)
	}
	return out, nil
}
