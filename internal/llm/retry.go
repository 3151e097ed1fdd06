package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryProvider retries failed Generate calls with capped exponential
// backoff and jitter. Calls made under SingleAttempt get one attempt.
// Streams pass straight through: once chunks reached the caller a stream
// cannot be replayed, so the generation orchestrator owns stream retries.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry wraps p with retry logic.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &RetryProvider{inner: p, config: cfg}
}

// failure classifies an error for retry purposes.
type failure int

const (
	failFatal     failure = iota // never retried
	failTransient                // retried until attempts run out
	failMalformed                // retried once per call
)

func classify(err error) failure {
	var (
		maxTok   *ErrMaxTokensExceeded
		invalid  *ErrInvalidResponse
		rejected *ErrRequestRejected
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return failFatal
	case errors.As(err, &rejected):
		return failFatal
	case errors.As(err, &maxTok):
		// A longer answer will be truncated again.
		return failFatal
	case errors.As(err, &invalid):
		return failMalformed
	default:
		// Rate limits, outages and network errors.
		return failTransient
	}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if isSingleAttempt(ctx) {
		return r.inner.Generate(ctx, req)
	}

	var err error
	malformedSeen := false
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.backoff(attempt-1, err)):
			}
		}

		var resp *Response
		resp, err = r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}

		switch classify(err) {
		case failFatal:
			return nil, err
		case failMalformed:
			if malformedSeen {
				return nil, err
			}
			malformedSeen = true
		}
	}
	return nil, err
}

func (r *RetryProvider) Stream(ctx context.Context, req Request, onChunk func(string) error) (*Response, error) {
	return r.inner.Stream(ctx, req, onChunk)
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// backoff returns the wait after the given failed attempt. A rate limit
// with a Retry-After hint wins over the computed delay.
func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := math.Min(
		float64(r.config.InitialWait)*math.Pow(r.config.Multiplier, float64(attempt)),
		float64(r.config.MaxWait),
	)
	wait *= 0.8 + 0.4*rand.Float64()
	return time.Duration(wait)
}
