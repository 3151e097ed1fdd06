package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	// Embed returns the embedding of text. Fails with *ErrEmbedding when the
	// provider errors or returns an empty vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelID returns the embedding model identifier.
	ModelID() string
}

// geminiEmbeddingModels maps friendly names to Gemini embedding model IDs.
var geminiEmbeddingModels = map[string]string{
	"gemini-embedding": "text-embedding-004",
}

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder for OpenAI-compatible APIs.
func NewOpenAIEmbedder(cfg EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required for embeddings")
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIEmbedder{client: openai.NewClientWithConfig(config), model: model}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, &ErrEmbedding{Err: mapOpenAIError(err)}
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &ErrEmbedding{Err: fmt.Errorf("empty embedding in OpenAI response")}
	}
	return resp.Data[0].Embedding, nil
}

func (e *OpenAIEmbedder) ModelID() string {
	return e.model
}

// GeminiEmbedder implements Embedder using the Gemini embedding API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// NewGeminiEmbedder creates a Gemini embedder.
func NewGeminiEmbedder(ctx context.Context, cfg EmbeddingConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required for embeddings")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-embedding"
	}
	return &GeminiEmbedder{client: client, model: resolveModel(model, geminiEmbeddingModels)}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, &ErrEmbedding{Err: mapGeminiError(err)}
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, &ErrEmbedding{Err: fmt.Errorf("empty embedding in Gemini response")}
	}
	return resp.Embeddings[0].Values, nil
}

func (e *GeminiEmbedder) ModelID() string {
	return e.model
}

// NewEmbedder creates an Embedder from configuration.
func NewEmbedder(ctx context.Context, cfg EmbeddingConfig) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "openai":
		e, err = NewOpenAIEmbedder(cfg)
	case "gemini":
		e, err = NewGeminiEmbedder(ctx, cfg)
	case "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s embedder: %w", cfg.Provider, err)
	}
	return e, nil
}
