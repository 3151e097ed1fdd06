package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/mentorloop/internal/store"
)

// constructors builds the base provider for each configured name.
var constructors = map[string]func(ctx context.Context, cfg Config) (Provider, error){
	"anthropic": func(_ context.Context, cfg Config) (Provider, error) {
		return NewAnthropicProvider(cfg.Anthropic)
	},
	"openai": func(_ context.Context, cfg Config) (Provider, error) {
		return NewOpenAIProvider(cfg.OpenAI)
	},
	"gemini": func(ctx context.Context, cfg Config) (Provider, error) {
		return NewGeminiProvider(ctx, cfg.Gemini)
	},
	"openrouter": func(_ context.Context, cfg Config) (Provider, error) {
		return NewOpenRouterProvider(cfg.OpenRouter)
	},
}

// NewProvider builds the configured provider. Calls flow through
// timeout, then retry, then event logging, then the vendor SDK. The "mock"
// provider is returned bare so tests can script it directly.
func NewProvider(ctx context.Context, cfg Config, eventRepo store.EventRepo, logger *slog.Logger) (Provider, error) {
	if cfg.Provider == "mock" {
		return NewMockProvider(), nil
	}
	build, ok := constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	base, err := build(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return Decorate(base, cfg, eventRepo, logger), nil
}

// Decorate stacks the timeout, retry and logging decorators around base.
func Decorate(base Provider, cfg Config, eventRepo store.EventRepo, logger *slog.Logger) Provider {
	p := WithRetry(WithLogging(base, cfg.Provider, eventRepo, logger), cfg.Retry)
	return WithTimeout(p, cfg.Timeout)
}

// TimeoutProvider bounds every call, retries included, by a fixed duration.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout wraps p so each call gets at most d. A non-positive d returns p.
func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &TimeoutProvider{inner: p, timeout: d}
}

func (t *TimeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *TimeoutProvider) Stream(ctx context.Context, req Request, onChunk func(string) error) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Stream(ctx, req, onChunk)
}

func (t *TimeoutProvider) ModelID() string { return t.inner.ModelID() }
