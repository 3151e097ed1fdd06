package generation

import (
	"errors"
	"io"
	"strings"
	"sync"
)

// Sink receives generated text. Close terminates the stream.
type Sink interface {
	Write(chunk string) error
	Close() error
}

// errSinkGone marks a write that failed because the caller went away.
var errSinkGone = errors.New("sink closed by caller")

// guardedSink enforces exactly-once termination and records what reached
// the caller. After a failed write nothing else is written.
type guardedSink struct {
	inner Sink

	mu      sync.Mutex
	written strings.Builder
	started bool
	gone    bool
	closed  bool
	closeFn sync.Once
}

func guard(s Sink) *guardedSink {
	return &guardedSink{inner: s}
}

func (g *guardedSink) Write(chunk string) error {
	if chunk == "" {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gone || g.closed {
		return errSinkGone
	}
	if err := g.inner.Write(chunk); err != nil {
		g.gone = true
		return errSinkGone
	}
	g.started = true
	g.written.WriteString(chunk)
	return nil
}

func (g *guardedSink) Close() error {
	var err error
	g.closeFn.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()
		err = g.inner.Close()
	})
	return err
}

func (g *guardedSink) state() (text string, started, gone bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.written.String(), g.started, g.gone
}

// BufferSink collects output in memory. It is safe for concurrent use.
type BufferSink struct {
	mu     sync.Mutex
	buf    strings.Builder
	closes int
}

func (b *BufferSink) Write(chunk string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(chunk)
	return nil
}

func (b *BufferSink) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return nil
}

// String returns everything written so far.
func (b *BufferSink) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Closes returns how many times Close was called.
func (b *BufferSink) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// WriterSink streams chunks to W and ends the stream with a newline.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Write(chunk string) error {
	_, err := io.WriteString(s.W, chunk)
	return err
}

func (s WriterSink) Close() error {
	_, err := io.WriteString(s.W, "\n")
	return err
}
