package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const tableProfiles = "learner_profiles"

type profileRepo struct {
	s *Store
}

func (r *profileRepo) Get(ctx context.Context, userID string) (*LearnerProfile, error) {
	sel := builder().Select(
		"skill_level", "learning_style", "confidence_level",
		"intent_distribution", "weak_concept_clusters", "last_updated",
	).From(entsql.Table(tableProfiles)).Where(entsql.EQ("user_id", userID))

	var found *LearnerProfile
	err := r.s.query(ctx, sel, func(rows *sql.Rows) error {
		p := LearnerProfile{UserID: userID}
		var dist, clusters string
		var updated int64
		if err := rows.Scan(&p.SkillLevel, &p.LearningStyle, &p.ConfidenceLevel, &dist, &clusters, &updated); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(dist), &p.IntentDistribution); err != nil {
			return fmt.Errorf("decode intent distribution: %w", err)
		}
		if err := json.Unmarshal([]byte(clusters), &p.WeakConceptClusters); err != nil {
			return fmt.Errorf("decode weak concept clusters: %w", err)
		}
		p.LastUpdated = fromMillis(updated)
		found = &p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get profile %q: %w", userID, err)
	}
	return found, nil
}

func (r *profileRepo) Put(ctx context.Context, p *LearnerProfile) error {
	if p.UserID == "" {
		return fmt.Errorf("put profile: empty user id")
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now()
	}
	clusters := p.WeakConceptClusters
	if clusters == nil {
		clusters = []string{}
	}
	dist, err := json.Marshal(p.IntentDistribution)
	if err != nil {
		return fmt.Errorf("encode intent distribution: %w", err)
	}
	cl, err := json.Marshal(clusters)
	if err != nil {
		return fmt.Errorf("encode weak concept clusters: %w", err)
	}

	_, err = r.s.exec(ctx, builder().Insert(tableProfiles).
		Columns("user_id", "skill_level", "learning_style", "confidence_level",
			"intent_distribution", "weak_concept_clusters", "last_updated").
		Values(p.UserID, p.SkillLevel, p.LearningStyle, p.ConfidenceLevel,
			string(dist), string(cl), toMillis(p.LastUpdated)).
		OnConflict(entsql.ConflictColumns("user_id"), entsql.ResolveWithNewValues()))
	if err != nil {
		return fmt.Errorf("put profile %q: %w", p.UserID, err)
	}
	return nil
}
