package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/oklog/ulid/v2"
)

const (
	tableSignals      = "learning_signals"
	tableImprovements = "system_improvements"
)

type signalRepo struct {
	s *Store
}

func (r *signalRepo) AppendSignal(ctx context.Context, sig *LearningSignal) error {
	seqNum, err := r.s.nextSequence(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if sig.ID == "" {
		sig.ID = ulid.Make().String()
	}
	if sig.Timestamp.IsZero() {
		sig.Timestamp = time.Now()
	}
	sig.Sequence = seqNum

	m := sig.Metrics
	_, err = r.s.exec(ctx, builder().Insert(tableSignals).
		Columns("id", "sequence", "session_id", "user_id", "timestamp",
			"question_difficulty", "retrieval_confidence", "detected_confusion",
			"explanation_quality_score", "content_coverage_gap", "topic", "intent").
		Values(sig.ID, sig.Sequence, sig.SessionID, sig.UserID, toMillis(sig.Timestamp),
			m.QuestionDifficulty, m.RetrievalConfidence, m.DetectedConfusion,
			m.ExplanationQualityScore, m.ContentCoverageGap, sig.Context.Topic, sig.Context.Intent))
	if err != nil {
		return fmt.Errorf("append learning signal: %w", err)
	}
	return nil
}

func (r *signalRepo) RecentSignals(ctx context.Context, limit int) ([]LearningSignal, error) {
	sel := builder().Select(
		"id", "sequence", "session_id", "user_id", "timestamp",
		"question_difficulty", "retrieval_confidence", "detected_confusion",
		"explanation_quality_score", "content_coverage_gap", "topic", "intent",
	).From(entsql.Table(tableSignals)).OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		sel.Limit(limit)
	}

	var out []LearningSignal
	err := r.s.query(ctx, sel, func(rows *sql.Rows) error {
		var sig LearningSignal
		var ts int64
		m := &sig.Metrics
		if err := rows.Scan(&sig.ID, &sig.Sequence, &sig.SessionID, &sig.UserID, &ts,
			&m.QuestionDifficulty, &m.RetrievalConfidence, &m.DetectedConfusion,
			&m.ExplanationQualityScore, &m.ContentCoverageGap, &sig.Context.Topic, &sig.Context.Intent); err != nil {
			return err
		}
		sig.Timestamp = fromMillis(ts)
		out = append(out, sig)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query recent signals: %w", err)
	}
	return out, nil
}

func (r *signalRepo) AppendImprovement(ctx context.Context, imp *SystemImprovement) error {
	if imp.ID == "" {
		imp.ID = ulid.Make().String()
	}
	if imp.CreatedAt.IsZero() {
		imp.CreatedAt = time.Now()
	}
	_, err := r.s.exec(ctx, builder().Insert(tableImprovements).
		Columns("id", "improvement_type", "affected_topic", "suggested_fix", "priority_level",
			"feedback_id", "user_id", "session_id", "created_at").
		Values(imp.ID, imp.ImprovementType, imp.AffectedTopic, imp.SuggestedFix, imp.PriorityLevel,
			imp.FeedbackID, imp.UserID, imp.SessionID, toMillis(imp.CreatedAt)))
	if err != nil {
		return fmt.Errorf("append system improvement: %w", err)
	}
	return nil
}

func (r *signalRepo) RecentImprovements(ctx context.Context, limit int) ([]SystemImprovement, error) {
	// ULIDs sort by creation time.
	sel := builder().Select(
		"id", "improvement_type", "affected_topic", "suggested_fix", "priority_level",
		"feedback_id", "user_id", "session_id", "created_at",
	).From(entsql.Table(tableImprovements)).OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}

	var out []SystemImprovement
	err := r.s.query(ctx, sel, func(rows *sql.Rows) error {
		var imp SystemImprovement
		var created int64
		if err := rows.Scan(&imp.ID, &imp.ImprovementType, &imp.AffectedTopic, &imp.SuggestedFix,
			&imp.PriorityLevel, &imp.FeedbackID, &imp.UserID, &imp.SessionID, &created); err != nil {
			return err
		}
		imp.CreatedAt = fromMillis(created)
		out = append(out, imp)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query recent improvements: %w", err)
	}
	return out, nil
}
