package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// sequenceCounter hands out the global monotonic sequence shared by the
// append-only logs (LLM request events and learning signals). Per-table
// auto-increment IDs cannot order rows across tables; the shared counter
// can, and it also lets readers pull "the last N" by recency without
// trusting wall clocks.
//
// The mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level. The tracking row is created by
// the initial migration.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

func newSequenceCounter(db *sql.DB) *sequenceCounter {
	return &sequenceCounter{db: db}
}

// Next atomically returns the next sequence number and increments the counter.
// It must not be called while a transaction holds the only connection.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// nextSequence checks the store is open before drawing a sequence number.
func (s *Store) nextSequence(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	return s.seq.Next(ctx)
}
