package llm

import (
	"fmt"
	"net/http"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	openRouterAppName = "mentorloop"
)

// NewOpenRouterProvider returns an OpenAI-compatible provider pointed at
// OpenRouter. Model ids are passed through untouched, and every request
// carries OpenRouter's app attribution headers.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openRouterBaseURL
	}
	title := cfg.AppName
	if title == "" {
		title = openRouterAppName
	}

	client := &http.Client{Transport: attributionTransport{
		title:   title,
		referer: cfg.SiteURL,
		next:    http.DefaultTransport,
	}}
	return newOpenAIProviderRaw(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: baseURL}, client)
}

// attributionTransport sets the X-Title and HTTP-Referer headers OpenRouter
// uses to attribute traffic to an app.
type attributionTransport struct {
	title   string
	referer string
	next    http.RoundTripper
}

func (t attributionTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("X-Title", t.title)
	if t.referer != "" {
		r.Header.Set("HTTP-Referer", t.referer)
	}
	return t.next.RoundTrip(r)
}
