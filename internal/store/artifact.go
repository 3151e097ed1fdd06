package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const (
	tableArtifacts      = "runtime_artifacts"
	tableActiveArtifact = "active_artifact"
)

// artifactRepo stores immutable artifact versions and a single-row
// active pointer (id = 1) naming the latest one.
type artifactRepo struct {
	s *Store
}

func (r *artifactRepo) Publish(ctx context.Context, rec ArtifactRecord) error {
	if rec.Version == "" {
		return fmt.Errorf("publish artifact: empty version")
	}
	if !json.Valid(rec.Data) {
		return fmt.Errorf("publish artifact %s: data is not valid JSON", rec.Version)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	return r.s.tx(ctx, func(tx *sql.Tx) error {
		_, err := txExec(ctx, tx, builder().Insert(tableArtifacts).
			Columns("version", "created_at", "data").
			Values(rec.Version, toMillis(rec.CreatedAt), string(rec.Data)))
		if err != nil {
			return fmt.Errorf("insert artifact %s: %w", rec.Version, err)
		}

		// Last writer wins.
		_, err = txExec(ctx, tx, builder().Insert(tableActiveArtifact).
			Columns("id", "version", "updated_at").
			Values(1, rec.Version, toMillis(time.Now())).
			OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()))
		if err != nil {
			return fmt.Errorf("move latest pointer to %s: %w", rec.Version, err)
		}
		return nil
	})
}

func (r *artifactRepo) Latest(ctx context.Context) (*ArtifactRecord, error) {
	var version string
	err := r.s.queryRow(ctx, builder().Select("version").
		From(entsql.Table(tableActiveArtifact)).
		Where(entsql.EQ("id", 1)), &version)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read latest pointer: %w", err)
	}
	return r.Get(ctx, version)
}

func (r *artifactRepo) Get(ctx context.Context, version string) (*ArtifactRecord, error) {
	rec := ArtifactRecord{Version: version}
	var created int64
	var data string
	err := r.s.queryRow(ctx, builder().Select("created_at", "data").
		From(entsql.Table(tableArtifacts)).
		Where(entsql.EQ("version", version)), &created, &data)
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", version, err)
	}
	rec.CreatedAt = fromMillis(created)
	rec.Data = json.RawMessage(data)
	return &rec, nil
}

func (r *artifactRepo) List(ctx context.Context, limit int) ([]ArtifactRecord, error) {
	sel := builder().Select("version", "created_at", "data").
		From(entsql.Table(tableArtifacts)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("version"))
	if limit > 0 {
		sel.Limit(limit)
	}

	var out []ArtifactRecord
	err := r.s.query(ctx, sel, func(rows *sql.Rows) error {
		var rec ArtifactRecord
		var created int64
		var data string
		if err := rows.Scan(&rec.Version, &created, &data); err != nil {
			return err
		}
		rec.CreatedAt = fromMillis(created)
		rec.Data = json.RawMessage(data)
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	return out, nil
}
