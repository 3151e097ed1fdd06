package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/abhisek/mentorloop/internal/store/migrations"
	"github.com/pressly/goose/v3"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrStoreClosed is returned by every operation after Close.
	ErrStoreClosed = errors.New("store: closed")

	// ErrConflict is returned when an optimistic update loses a race.
	ErrConflict = errors.New("store: concurrent modification")
)

// Store owns the SQLite connection and hands out repositories.
type Store struct {
	db     *sql.DB
	seq    *sequenceCounter
	mu     sync.RWMutex
	closed bool
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and runs pending migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection keeps per-connection pragmas in effect and serializes
	// writers; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db, seq: newSequenceCounter(db)}, nil
}

func migrate(db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection. Further calls return ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo { return &eventRepo{s: s} }

// ProfileRepo returns a ProfileRepo backed by this store.
func (s *Store) ProfileRepo() ProfileRepo { return &profileRepo{s: s} }

// SignalRepo returns a SignalRepo backed by this store.
func (s *Store) SignalRepo() SignalRepo { return &signalRepo{s: s} }

// FeedbackRepo returns a FeedbackRepo backed by this store.
func (s *Store) FeedbackRepo() FeedbackRepo { return &feedbackRepo{s: s} }

// ArtifactRepo returns an ArtifactRepo backed by this store.
func (s *Store) ArtifactRepo() ArtifactRepo { return &artifactRepo{s: s} }

// QuestionRepo returns a QuestionRepo backed by this store.
func (s *Store) QuestionRepo() QuestionRepo { return &questionRepo{s: s} }

// SessionRepo returns a SessionRepo backed by this store.
func (s *Store) SessionRepo() SessionRepo { return &sessionRepo{s: s} }

// ChunkRepo returns a ChunkRepo backed by this store.
func (s *Store) ChunkRepo() ChunkRepo { return &chunkRepo{s: s} }

// UsageRepo returns a UsageRepo backed by this store.
func (s *Store) UsageRepo() UsageRepo { return &usageRepo{s: s} }

// TurnRepo returns the chat turn repository.
func (s *Store) TurnRepo() TurnRepo { return &turnRepo{s: s} }

// builder returns a SQLite-flavoured statement builder.
func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// exec runs a write statement built with the ent SQL builder.
func (s *Store) exec(ctx context.Context, q entsql.Querier) (sql.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	query, args := q.Query()
	return s.db.ExecContext(ctx, query, args...)
}

// query runs a select and hands each row to scan. Rows are always closed
// before query returns.
func (s *Store) query(ctx context.Context, q entsql.Querier, scan func(*sql.Rows) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	query, args := q.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// queryRow runs a single-row select. It returns ErrNotFound when no row matches.
func (s *Store) queryRow(ctx context.Context, q entsql.Querier, dest ...any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	query, args := q.Query()
	err := s.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// tx runs fn inside a transaction.
func (s *Store) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func txExec(ctx context.Context, tx *sql.Tx, q entsql.Querier) (sql.Result, error) {
	query, args := q.Query()
	return tx.ExecContext(ctx, query, args...)
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. MENTORLOOP_DB environment variable
// 2. $XDG_DATA_HOME/mentorloop/mentorloop.db
// 3. ~/.local/share/mentorloop/mentorloop.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("MENTORLOOP_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "mentorloop", "mentorloop.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
