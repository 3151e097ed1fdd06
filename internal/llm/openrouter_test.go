package llm

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenRouterProvider(t *testing.T) {
	tests := []struct {
		name      string
		cfg       OpenRouterConfig
		wantErr   bool
		wantModel string
	}{
		{"valid config", OpenRouterConfig{APIKey: "sk-or-test", Model: "google/gemini-2.0-flash-exp"}, false, "google/gemini-2.0-flash-exp"},
		{"empty API key", OpenRouterConfig{Model: "google/gemini-2.0-flash-exp"}, true, ""},
		{"vendor-qualified model passes through", OpenRouterConfig{APIKey: "sk-or-test", Model: "anthropic/claude-3-haiku"}, false, "anthropic/claude-3-haiku"},
		{"custom base URL", OpenRouterConfig{APIKey: "sk-or-test", Model: "meta-llama/llama-3-8b", BaseURL: "https://router.example/v1"}, false, "meta-llama/llama-3-8b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewOpenRouterProvider(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, p.ModelID())
		})
	}
}

func TestAttributionTransport(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	client := &http.Client{Transport: attributionTransport{title: "mentorloop", referer: "https://tutor.example", next: http.DefaultTransport}}
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "mentorloop", got.Get("X-Title"))
	assert.Equal(t, "https://tutor.example", got.Get("HTTP-Referer"))
	assert.Empty(t, req.Header.Get("X-Title"), "caller's request must not be mutated")
}
