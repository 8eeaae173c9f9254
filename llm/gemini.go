package llm

import (
	"context"
	"fmt"
	"math"
	"strings"

	"legalcheck-backend/logger"
	"legalcheck-backend/models"

	"github.com/google/generative-ai-go/genai"
)

// maxEmbedBatch is the per-request limit of batchEmbedContents.
const maxEmbedBatch = 100

// Gemini implements Generator and Embedder on the Gemini API.
type Gemini struct {
	client         *genai.Client
	defaultModel   string
	embeddingModel string
	log            *logger.Logger
}

// NewGemini wraps an initialized client.
func NewGemini(client *genai.Client, defaultModel, embeddingModel string, log *logger.Logger) *Gemini {
	if log == nil {
		log = logger.NewNop()
	}
	return &Gemini{
		client:         client,
		defaultModel:   defaultModel,
		embeddingModel: embeddingModel,
		log:            log,
	}
}

var (
	_ Generator = (*Gemini)(nil)
	_ Embedder  = (*Gemini)(nil)
)

// Generate sends one chat turn. Failed calls are returned as errors and never
// retried; callers own the fallback.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	name := req.Model
	if name == "" {
		name = g.defaultModel
	}
	model := g.client.GenerativeModel(name)
	model.SetTemperature(req.Temperature)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = req.Schema
	}

	cs := model.StartChat()
	for _, m := range req.History {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}

	parts := make([]genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.ImageData(imageFormat(img.MIMEType), img.Data))
	}
	parts = append(parts, genai.Text(req.Prompt))

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", name, err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}

	var out strings.Builder
	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop && cand.FinishReason != genai.FinishReasonUnspecified {
			g.log.Warn("gemini candidate finished early", "model", name, "candidate", i, "reason", cand.FinishReason.String())
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				out.WriteString(string(t))
			}
		}
		// Only the first candidate with content is used.
		if out.Len() > 0 {
			break
		}
	}
	if out.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return out.String(), nil
}

// EmbedQuery embeds a retrieval query.
func (g *Gemini) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.embeddingModel)
	em.TaskType = genai.TaskTypeRetrievalQuery
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmptyResponse
	}
	return Normalize(res.Embedding.Values), nil
}

// EmbedDocuments embeds passages for indexing, batching as needed.
func (g *Gemini) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.embeddingModel)
	em.TaskType = genai.TaskTypeRetrievalDocument

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))
		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed documents [%d:%d]: %w", start, end, err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("embed documents: expected %d embeddings, got %d", end-start, len(res.Embeddings))
		}
		for _, e := range res.Embeddings {
			out = append(out, Normalize(e.Values))
		}
	}
	return out, nil
}

// Normalize scales v to unit length in place and returns it.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// imageFormat converts "image/png" to the "png" form genai.ImageData expects.
func imageFormat(mimeType string) string {
	f := strings.TrimPrefix(strings.ToLower(mimeType), "image/")
	if f == "" || f == mimeType {
		return "jpeg"
	}
	return f
}
