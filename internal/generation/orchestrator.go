// Package generation streams tutor answers to the caller with bounded retry
// and a streaming to non-streaming fallback.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/mentorloop/internal/behavior"
	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/retrieval"
)

// Texts written to the caller outside of model output.
const (
	InterruptionNotice = "\n\n[Connection interrupted, recovering the rest of the answer...]\n\n"
	Apology            = "Sorry, I couldn't generate an answer right now. Please try again in a moment."
)

// Config controls retries.
type Config struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int `yaml:"max_retries"`

	// Backoff is multiplied by the attempt number before each retry.
	Backoff time.Duration `yaml:"backoff"`
}

// DefaultConfig returns two retries with a one second linear backoff.
func DefaultConfig() Config {
	return Config{MaxRetries: 2, Backoff: time.Second}
}

// Outcome describes how a turn ended.
type Outcome struct {
	// Text is everything that reached the caller, notices included.
	Text string

	// Answer is the model text written, without notices or apology.
	Answer string

	Attempts     int
	Completed    bool
	Apologized   bool
	Disconnected bool
}

// Orchestrator drives the generative model for one turn at a time.
type Orchestrator struct {
	provider llm.Provider
	cfg      Config
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(provider llm.Provider, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With("component", "generation"),
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Stream answers query with the given behavior, writing to sink as output
// arrives. The sink is closed exactly once on every path.
func (o *Orchestrator) Stream(ctx context.Context, query string, b behavior.Behavior, sink Sink) Outcome {
	g := guard(sink)
	defer g.Close()

	// The loop below is the only retry policy for answers.
	ctx = llm.SingleAttempt(llm.WithPurpose(ctx, "tutor-answer"))
	req := llm.Request{
		System:      b.SystemInstruction,
		Messages:    llm.UserPrompt(BuildPrompt(query, b.Retrieval)),
		MaxTokens:   b.MaxOutputTokens,
		Temperature: b.Temperature,
	}

	var (
		out    Outcome
		answer strings.Builder
	)
	finish := func() Outcome {
		out.Text, _, out.Disconnected = g.state()
		out.Answer = answer.String()
		return out
	}

	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := o.sleep(ctx, o.cfg.Backoff*time.Duration(attempt)); err != nil {
				return finish()
			}
		}
		out.Attempts = attempt + 1

		_, err := o.provider.Stream(ctx, req, func(chunk string) error {
			if err := g.Write(chunk); err != nil {
				return err
			}
			answer.WriteString(chunk)
			return nil
		})
		if err == nil {
			out.Completed = true
			return finish()
		}
		if errors.Is(err, errSinkGone) || ctx.Err() != nil {
			return finish()
		}
		o.logger.Warn("stream failed, trying non-stream fallback", "attempt", attempt+1, "error", err)

		_, started, _ := g.state()
		if started {
			if g.Write(InterruptionNotice) != nil {
				return finish()
			}
		}

		resp, ferr := o.provider.Generate(ctx, req)
		if ferr == nil {
			text := resp.Text()
			if started {
				text = continuation(text)
			}
			if g.Write(text) == nil {
				answer.WriteString(text)
				out.Completed = true
			}
			return finish()
		}
		if ctx.Err() != nil {
			return finish()
		}
		o.logger.Warn("fallback generation failed", "attempt", attempt+1, "error", ferr)
	}

	if g.Write(Apology) == nil {
		out.Apologized = true
	}
	return finish()
}

// Fail terminates sink with the apology after a failure that happened
// before generation could start.
func (o *Orchestrator) Fail(sink Sink, cause error) Outcome {
	o.logger.Warn("turn failed before generation", "error", cause)
	g := guard(sink)
	defer g.Close()
	out := Outcome{}
	if g.Write(Apology) == nil {
		out.Apologized = true
	}
	out.Text, _, out.Disconnected = g.state()
	return out
}

// continuation returns the part of a full regenerated answer to append after
// a stream that already wrote a prefix. It keeps the second half by rune
// count, which assumes the interrupted stream got roughly halfway.
func continuation(full string) string {
	r := []rune(full)
	return string(r[len(r)/2:])
}

// BuildPrompt composes the user message from the query and retrieved context.
func BuildPrompt(query string, res *retrieval.Result) string {
	var b strings.Builder
	if res != nil && len(res.Chunks) > 0 {
		b.WriteString("Curriculum context:\n")
		for i, c := range res.Chunks {
			fmt.Fprintf(&b, "\n[%d] (%s, %s, similarity %.2f)\n%s\n", i+1, c.Type, c.Source, c.Similarity, c.Content)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No curriculum context matched this question.\n\n")
	}
	fmt.Fprintf(&b, "Question: %s", query)
	return b.String()
}
