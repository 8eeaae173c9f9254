package service

import (
	"context"
	"errors"
	"strings"

	"legalcheck-backend/llm"
	"legalcheck-backend/logger"
	"legalcheck-backend/models"
	"legalcheck-backend/observability"

	"go.opentelemetry.io/otel/attribute"
)

// RetrievalTopK is the fixed number of passages fetched per turn.
const RetrievalTopK = 3

// Retrieval is the outcome of one history-aware retrieval.
type Retrieval struct {
	StandaloneQuery string
	Passages        []models.RetrievedPassage
}

// HistoryAwareRetriever restates history-dependent queries before searching
// the statute index.
type HistoryAwareRetriever struct {
	gen   llm.Generator
	model string
	index VectorIndex
	k     int
	log   *logger.Logger
}

// NewHistoryAwareRetriever creates a retriever over index. model is used for
// reformulation only.
func NewHistoryAwareRetriever(gen llm.Generator, model string, index VectorIndex, log *logger.Logger) *HistoryAwareRetriever {
	return &HistoryAwareRetriever{gen: gen, model: model, index: index, k: RetrievalTopK, log: log}
}

// Retrieve returns at most RetrievalTopK passages in similarity order. Hints
// (such as intent keywords) are appended to the search text but never to the
// standalone query. ErrIndexUninitialized is the only error returned; other
// search failures yield no passages.
func (r *HistoryAwareRetriever) Retrieve(ctx context.Context, query string, history []models.HistoryMessage, hints ...string) (*Retrieval, error) {
	ctx, span := observability.StartSpan(ctx, "retriever.retrieve",
		attribute.Int("history.length", len(history)))
	defer span.End()

	standalone := r.reformulate(ctx, query, history)
	searchText := standalone
	if h := strings.TrimSpace(strings.Join(hints, " ")); h != "" {
		searchText += "\n" + h
	}

	passages, err := r.index.Search(ctx, searchText, r.k)
	switch {
	case errors.Is(err, ErrIndexUninitialized):
		r.log.Error("vector index is not initialized", "stage", "retriever")
		span.RecordError(err)
		return nil, err
	case err != nil:
		r.log.Warn("statute search failed", "stage", "retriever", "error", err)
		observability.MarkFallback(span, err)
		passages = nil
	}
	if len(passages) > r.k {
		passages = passages[:r.k]
	}
	span.SetAttributes(attribute.Int("passages", len(passages)))
	return &Retrieval{StandaloneQuery: standalone, Passages: passages}, nil
}

// reformulate only calls the model when there is history to depend on.
func (r *HistoryAwareRetriever) reformulate(ctx context.Context, query string, history []models.HistoryMessage) string {
	if len(history) == 0 {
		return query
	}
	var b strings.Builder
	b.WriteString("[대화 기록]\n")
	for _, m := range history {
		role := "사용자"
		if m.Role == models.RoleAssistant {
			role = "AI"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	b.WriteString("\n[최신 질문]\n")
	b.WriteString(query)

	out, err := r.gen.Generate(ctx, llm.Request{
		Model:  r.model,
		System: reformulateSystemPrompt,
		Prompt: b.String(),
	})
	out = strings.TrimSpace(out)
	if err != nil || out == "" {
		if err != nil {
			r.log.Warn("query reformulation failed", "stage", "retriever", "error", err)
		}
		return query
	}
	return out
}
