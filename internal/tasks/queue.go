// Package tasks runs best-effort background work off the request path.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Config sizes the queue.
type Config struct {
	Capacity    int           `yaml:"capacity"`
	Workers     int           `yaml:"workers"`
	TaskTimeout time.Duration `yaml:"task_timeout"`
}

// DefaultConfig returns the default queue sizing.
func DefaultConfig() Config {
	return Config{
		Capacity:    64,
		Workers:     2,
		TaskTimeout: 2 * time.Minute,
	}
}

// Func is a unit of background work.
type Func func(ctx context.Context) error

type task struct {
	name string
	fn   Func
}

// Queue is a bounded work queue drained by a fixed set of workers. Work is
// never retried: failures and panics are logged and dropped.
type Queue struct {
	cfg     Config
	logger  *slog.Logger
	pending chan task

	// ctx outlives any request; it is cancelled only when Close gives up.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts a queue with cfg.Workers workers.
func New(cfg Config, logger *slog.Logger) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		cfg:     cfg,
		logger:  logger.With("component", "tasks"),
		pending: make(chan task, cfg.Capacity),
		ctx:     ctx,
		cancel:  cancel,
	}
	for range cfg.Workers {
		q.wg.Add(1)
		go q.processLoop()
	}
	return q
}

// Submit enqueues fn without blocking. It reports false when the queue is
// full or closed, in which case the work is dropped.
func (q *Queue) Submit(name string, fn Func) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("queue closed, dropping task", "task", name)
		return false
	}

	select {
	case q.pending <- task{name: name, fn: fn}:
		return true
	default:
		q.logger.Warn("queue full, dropping task", "task", name, "capacity", q.cfg.Capacity)
		return false
	}
}

func (q *Queue) processLoop() {
	defer q.wg.Done()
	for t := range q.pending {
		q.run(t)
	}
}

func (q *Queue) run(t task) {
	ctx := q.ctx
	if q.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.TaskTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			q.logger.Warn("task panicked", "task", t.name, "panic", fmt.Sprint(r))
		}
	}()

	start := time.Now()
	if err := t.fn(ctx); err != nil {
		q.logger.Warn("task failed", "task", t.name, "error", err)
		return
	}
	q.logger.Debug("task done", "task", t.name, "elapsed", time.Since(start))
}

// Close stops accepting work and waits for queued tasks to finish. If ctx
// expires first, running tasks are cancelled and ctx's error is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.pending)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}
