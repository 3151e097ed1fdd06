package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const tableChunks = "content_chunks"

type chunkRepo struct {
	s *Store
}

func (r *chunkRepo) Upsert(ctx context.Context, c Chunk) error {
	if len(c.Embedding) == 0 {
		return fmt.Errorf("upsert chunk %s: empty embedding", c.ID)
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	_, err := r.s.exec(ctx, builder().Insert(tableChunks).
		Columns("id", "source", "chunk_type", "content", "content_hash", "embedding", "updated_at").
		Values(c.ID, c.Source, c.Type, c.Content, c.ContentHash, c.Embedding, toMillis(c.UpdatedAt)).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()))
	if err != nil {
		return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
	}
	return nil
}

func (r *chunkRepo) Hashes(ctx context.Context, source string) (map[string]string, error) {
	sel := builder().Select("id", "content_hash").
		From(entsql.Table(tableChunks)).
		Where(entsql.EQ("source", source))

	out := make(map[string]string)
	err := r.s.query(ctx, sel, func(rows *sql.Rows) error {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return err
		}
		out[id] = hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chunk hashes for %q: %w", source, err)
	}
	return out, nil
}

func (r *chunkRepo) All(ctx context.Context) ([]Chunk, error) {
	sel := builder().Select("id", "source", "chunk_type", "content", "content_hash", "embedding", "updated_at").
		From(entsql.Table(tableChunks)).
		OrderBy("id")

	var out []Chunk
	err := r.s.query(ctx, sel, func(rows *sql.Rows) error {
		var c Chunk
		var updated int64
		if err := rows.Scan(&c.ID, &c.Source, &c.Type, &c.Content, &c.ContentHash, &c.Embedding, &updated); err != nil {
			return err
		}
		c.UpdatedAt = fromMillis(updated)
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	return out, nil
}

func (r *chunkRepo) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := r.s.exec(ctx, builder().Delete(tableChunks).Where(entsql.In("id", args...))); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func (r *chunkRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.s.queryRow(ctx, builder().Select(entsql.Count("*")).From(entsql.Table(tableChunks)), &n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
