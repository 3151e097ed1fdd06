// Package vectorstore provides nearest-neighbour search over curriculum
// chunks persisted in SQLite.
package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/abhisek/mentorloop/internal/store"
)

// Metric names a distance function.
type Metric string

// MetricCosine ranks by cosine distance (1 - cosine similarity).
const MetricCosine Metric = "cosine"

// Payload is the content stored alongside a vector.
type Payload struct {
	ID      string
	Content string
	Source  string
	Type    string
}

// Match is one search hit.
type Match struct {
	Payload  Payload
	Distance float64
}

// Searcher finds the stored vectors nearest to a query vector.
type Searcher interface {
	// Nearest returns up to k matches ordered by ascending distance. An
	// empty store yields an empty result, not an error.
	Nearest(ctx context.Context, vector []float32, metric Metric, k int) ([]Match, error)
}

// Store is a brute-force vector store over the content_chunks table.
type Store struct {
	chunks store.ChunkRepo
}

// New creates a Store.
func New(chunks store.ChunkRepo) *Store {
	return &Store{chunks: chunks}
}

// Put writes a chunk and its embedding.
func (s *Store) Put(ctx context.Context, p Payload, contentHash string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("put %s: empty vector", p.ID)
	}
	return s.chunks.Upsert(ctx, store.Chunk{
		ID:          p.ID,
		Source:      p.Source,
		Type:        p.Type,
		Content:     p.Content,
		ContentHash: contentHash,
		Embedding:   PackFloat32(vector),
	})
}

func (s *Store) Nearest(ctx context.Context, vector []float32, metric Metric, k int) ([]Match, error) {
	if metric != MetricCosine {
		return nil, fmt.Errorf("unsupported metric %q", metric)
	}
	if k <= 0 {
		return []Match{}, nil
	}

	chunks, err := s.chunks.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	matches := make([]Match, 0, len(chunks))
	for _, c := range chunks {
		emb := UnpackFloat32(c.Embedding)
		// Skip vectors from a different embedding model.
		if len(emb) == 0 || len(emb) != len(vector) {
			continue
		}
		matches = append(matches, Match{
			Payload:  Payload{ID: c.ID, Content: c.Content, Source: c.Source, Type: c.Type},
			Distance: CosineDistance(vector, emb),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
