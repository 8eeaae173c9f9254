// Package llm wraps the generation and embedding capabilities used by the
// fact-checking pipeline.
package llm

import (
	"context"
	"errors"

	"legalcheck-backend/models"

	"github.com/google/generative-ai-go/genai"
)

var (
	ErrEmptyResponse = errors.New("model returned empty content")
	ErrBlocked       = errors.New("model blocked the prompt")
)

// Image is an inline image part of a request.
type Image struct {
	MIMEType string
	Data     []byte
}

// Request is a single generation call. History is replayed before Prompt.
type Request struct {
	Model       string
	System      string
	History     []models.HistoryMessage
	Prompt      string
	Images      []Image
	JSON        bool
	Schema      *genai.Schema
	Temperature float32
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Embedder turns text into L2-normalized vectors.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}
