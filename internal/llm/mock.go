package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error

	// Chunks, when set, are delivered one by one by Stream. If Err is also
	// set, the chunks are delivered first and Err is returned afterwards,
	// which simulates a stream that breaks after partial output.
	Chunks []string
}

// MockProvider is a deterministic Provider for testing.
// It returns canned responses in FIFO order and records all requests.
// Generate and Stream share the same queue.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request
	Streams   int
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

func (m *MockProvider) next(req Request, streamed bool) (MockResponse, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if streamed {
		m.Streams++
	}

	if len(m.responses) == 0 {
		return MockResponse{}, false
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, true
}

// Generate returns the next canned response or ErrProviderUnavailable if
// the queue is empty.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	resp, ok := m.next(req, false)
	if !ok {
		return nil, &ErrProviderUnavailable{Err: nil}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	content := resp.Content
	if content == nil && len(resp.Chunks) > 0 {
		content = json.RawMessage(strings.Join(resp.Chunks, ""))
	}
	if req.Schema != nil {
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
	}

	return &Response{
		Content:    content,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// Stream delivers the next canned response chunk by chunk.
func (m *MockProvider) Stream(ctx context.Context, req Request, onChunk func(string) error) (*Response, error) {
	resp, ok := m.next(req, true)
	if !ok {
		return nil, &ErrProviderUnavailable{Err: nil}
	}

	chunks := resp.Chunks
	if len(chunks) == 0 && resp.Content != nil && resp.Err == nil {
		chunks = []string{string(resp.Content)}
	}

	var text strings.Builder
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text.WriteString(c)
		if err := onChunk(c); err != nil {
			return nil, err
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}

	return &Response{
		Content:    json.RawMessage(text.String()),
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate and Stream calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// StreamCount returns the number of Stream calls made.
func (m *MockProvider) StreamCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Streams
}

// MockEmbedder is a deterministic Embedder for tests and offline use.
// It hashes lower-cased word tokens into a fixed number of buckets and
// normalizes the result, so texts sharing vocabulary land close together.
type MockEmbedder struct {
	dims int

	mu    sync.Mutex
	calls int
	Err   error
}

// NewMockEmbedder creates a MockEmbedder with the given dimensionality.
func NewMockEmbedder(dims int) *MockEmbedder {
	if dims <= 0 {
		dims = 64
	}
	return &MockEmbedder{dims: dims}
}

func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	failure := e.Err
	e.mu.Unlock()

	if failure != nil {
		return nil, &ErrEmbedding{Err: failure}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ErrEmbedding{Err: err}
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return nil, &ErrEmbedding{Err: fmt.Errorf("no tokens to embed")}
	}

	vec := make([]float32, e.dims)
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// ModelID returns "mock-embedding".
func (e *MockEmbedder) ModelID() string {
	return "mock-embedding"
}

// CallCount returns the number of Embed calls made.
func (e *MockEmbedder) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
