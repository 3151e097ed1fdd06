// Package llm puts the supported model vendors behind one Provider
// interface, plus an Embedder for retrieval. NewProvider stacks decorators
// around the vendor SDK client.
package llm

import (
	"context"
	"encoding/json"
)

// Provider is a generative model.
type Provider interface {
	// Generate returns a complete response. With req.Schema set the vendor's
	// structured-output mode is used and Content is JSON that has already
	// been validated against the schema.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Stream calls onChunk with each text fragment as it arrives and returns
	// the concatenated text. An error from onChunk abandons the stream and is
	// returned as is. Schema is ignored.
	Stream(ctx context.Context, req Request, onChunk func(chunk string) error) (*Response, error)

	// ModelID is the configured model id.
	ModelID() string
}

// Request is one model call.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks for JSON matching it.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero means deterministic.
	Temperature float64
}

// Message is one conversation entry.
type Message struct {
	Role    Role
	Content string
}

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema for structured output.
type Schema struct {
	// Name is kebab-case and unique; it doubles as the validator cache key
	// and the vendor-side tool or schema name.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is a model's output.
type Response struct {
	// Content is validated JSON for schema requests, raw text otherwise.
	Content json.RawMessage
	Usage   Usage

	// Model is the id that actually served the call.
	Model string

	// StopReason is "end", "max_tokens" or "error".
	StopReason string
}

// Text returns Content as a string. A nil Response yields "".
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Content)
}

// Usage counts tokens for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UserPrompt is a single user message.
func UserPrompt(content string) []Message {
	return []Message{{Role: RoleUser, Content: content}}
}
