package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/mentorloop/internal/store"
)

// LoggingProvider records every call, successful or not, as an LLM request
// event. Events feed "llm list", "llm view" and the cost report.
type LoggingProvider struct {
	inner  Provider
	vendor string
	events store.EventRepo
	logger *slog.Logger
}

// WithLogging wraps p. vendor names the backing API ("anthropic",
// "openrouter", ...). A nil repo only logs through logger.
func WithLogging(p Provider, vendor string, events store.EventRepo, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{inner: p, vendor: vendor, events: events, logger: logger.With("component", "llm")}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	l.record(ctx, PurposeFrom(ctx), req, resp, err, time.Since(start))
	return resp, err
}

// Stream events carry a ":stream" purpose suffix.
func (l *LoggingProvider) Stream(ctx context.Context, req Request, onChunk func(string) error) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Stream(ctx, req, onChunk)
	l.record(ctx, PurposeFrom(ctx)+":stream", req, resp, err, time.Since(start))
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func (l *LoggingProvider) record(ctx context.Context, purpose string, req Request, resp *Response, err error, took time.Duration) {
	ev := store.LLMRequestEventData{
		Provider:    l.vendor,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   took.Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if resp != nil {
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
	}

	attrs := []any{"purpose", purpose, "model", ev.Model, "latency_ms", ev.LatencyMs}
	if err != nil {
		ev.ErrorMessage = err.Error()
		l.logger.Warn("llm call failed", append(attrs, "error", err)...)
	} else {
		l.logger.Debug("llm call", append(attrs, "in", ev.InputTokens, "out", ev.OutputTokens)...)
	}

	if l.events == nil {
		return
	}
	// Keep the event even when the caller has gone away.
	if err := l.events.AppendLLMRequest(context.WithoutCancel(ctx), ev); err != nil {
		l.logger.Warn("record llm event", "purpose", purpose, "error", err)
	}
}

// transcript renders a request as readable text for "llm view".
func transcript(req Request) string {
	var b strings.Builder
	section := func(title, body string) {
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", title, body)
	}
	if req.System != "" {
		section("system", req.System)
	}
	for _, m := range req.Messages {
		section(string(m.Role), m.Content)
	}
	if req.Schema != nil {
		def, err := json.MarshalIndent(req.Schema.Definition, "", "  ")
		if err != nil {
			def = []byte(err.Error())
		}
		section("schema "+req.Schema.Name, string(def))
	}
	return strings.TrimRight(b.String(), "\n")
}
