package service

import (
	"context"
	"fmt"
	"strings"

	"legalcheck-backend/llm"
	"legalcheck-backend/logger"
	"legalcheck-backend/models"
	"legalcheck-backend/observability"
)

// NoPassagesContext stands in for the digest when retrieval found nothing.
const NoPassagesContext = "관련 법령 문서를 찾지 못했습니다."

// ContextCompressor reduces retrieved passages to a query-relevant digest.
type ContextCompressor struct {
	gen   llm.Generator
	model string
	log   *logger.Logger
}

// NewContextCompressor creates a compressor calling model through gen.
func NewContextCompressor(gen llm.Generator, model string, log *logger.Logger) *ContextCompressor {
	return &ContextCompressor{gen: gen, model: model, log: log}
}

// Compress extracts rules from passages and appends plugin fragments
// verbatim. When the model call fails the raw passages are used instead.
func (c *ContextCompressor) Compress(ctx context.Context, query string, passages []models.RetrievedPassage, pluginContext []string) string {
	ctx, span := observability.StartSpan(ctx, "compressor.compress")
	defer span.End()

	digest := NoPassagesContext
	if len(passages) > 0 {
		raw := formatPassages(passages)
		out, err := c.gen.Generate(ctx, llm.Request{
			Model:  c.model,
			System: compressorSystemPrompt,
			Prompt: fmt.Sprintf("[질문]\n%s\n\n[검색된 문서]\n%s", query, raw),
		})
		out = strings.TrimSpace(out)
		switch {
		case err != nil:
			c.log.Warn("context compression failed, using raw passages", "stage", "compressor", "error", err)
			observability.MarkFallback(span, err)
			digest = raw
		case out == "":
			c.log.Warn("context compression returned nothing, using raw passages", "stage", "compressor")
			observability.MarkFallback(span, llm.ErrEmptyResponse)
			digest = raw
		default:
			digest = out
		}
	}

	parts := []string{digest}
	for _, f := range pluginContext {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, "\n\n")
}

func formatPassages(passages []models.RetrievedPassage) string {
	var b strings.Builder
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := p.SourceLabel
		if label == "" {
			label = "출처 미상"
		}
		fmt.Fprintf(&b, "--- 문서 (출처: %s) ---\n%s", label, p.Content)
	}
	return b.String()
}
