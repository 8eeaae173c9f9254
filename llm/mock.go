package llm

import (
	"context"
	"sync"
)

// MockGenerator is a scripted Generator for tests.
type MockGenerator struct {
	mu      sync.Mutex
	Respond func(req Request) (string, error)
	Calls   []Request
}

// NewMockGenerator returns a generator that answers with respond.
func NewMockGenerator(respond func(req Request) (string, error)) *MockGenerator {
	return &MockGenerator{Respond: respond}
}

var _ Generator = (*MockGenerator)(nil)

func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.Respond(req)
}

// CallCount returns the number of Generate calls so far.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockEmbedder maps text to vectors through Vector.
type MockEmbedder struct {
	Vector func(text string) []float32
	Err    error
}

var _ Embedder = (*MockEmbedder)(nil)

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Vector(text), nil
}

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.Vector(t)
	}
	return out, nil
}
