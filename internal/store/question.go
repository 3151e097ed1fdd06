package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const tableQuestions = "interview_questions"

type questionRepo struct {
	s *Store
}

func (r *questionRepo) Upsert(ctx context.Context, qs []Question) (int, error) {
	if len(qs) == 0 {
		return 0, nil
	}
	ins := builder().Insert(tableQuestions).
		Columns("id", "subject", "text", "difficulty", "topic", "answer_variants")
	for _, q := range qs {
		variants := q.AnswerVariants
		if variants == nil {
			variants = []string{}
		}
		v, err := json.Marshal(variants)
		if err != nil {
			return 0, fmt.Errorf("encode answer variants for %s: %w", q.ID, err)
		}
		ins.Values(q.ID, q.Subject, q.Text, q.Difficulty, q.Topic, string(v))
	}
	ins.OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues())

	if _, err := r.s.exec(ctx, ins); err != nil {
		return 0, fmt.Errorf("upsert questions: %w", err)
	}
	return len(qs), nil
}

func (r *questionRepo) BySubject(ctx context.Context, subject string) ([]Question, error) {
	sel := builder().Select("id", "subject", "text", "difficulty", "topic", "answer_variants").
		From(entsql.Table(tableQuestions)).
		Where(entsql.EQ("subject", subject)).
		OrderBy("id")

	var out []Question
	err := r.s.query(ctx, sel, func(rows *sql.Rows) error {
		var q Question
		var variants string
		if err := rows.Scan(&q.ID, &q.Subject, &q.Text, &q.Difficulty, &q.Topic, &variants); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(variants), &q.AnswerVariants); err != nil {
			return fmt.Errorf("decode answer variants for %s: %w", q.ID, err)
		}
		out = append(out, q)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("questions for %q: %w", subject, err)
	}
	return out, nil
}
