package service

import (
	"context"
	"fmt"
	"strings"

	"legalcheck-backend/llm"
	"legalcheck-backend/logger"
	"legalcheck-backend/models"
	"legalcheck-backend/observability"

	"github.com/google/generative-ai-go/genai"
)

// ProcessingErrorMarker fills the sections of an ERROR verdict.
const ProcessingErrorMarker = "처리 오류"

var verdictSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"verdict": {
			Type:   genai.TypeString,
			Format: "enum",
			Enum:   []string{models.LabelTrue, models.LabelPartial, models.LabelFalse},
		},
		"section_1_summary":                   {Type: genai.TypeString},
		"section_2_law_explanation":           {Type: genai.TypeString},
		"section_3_real_case_example":         {Type: genai.TypeString},
		"section_4_caution":                   {Type: genai.TypeString},
		"section_5_counseling_recommendation": {Type: genai.TypeString},
	},
	Required: []string{
		"verdict", "section_1_summary", "section_2_law_explanation",
		"section_3_real_case_example", "section_4_caution", "section_5_counseling_recommendation",
	},
}

// StructuredGenerator produces the five-section verdict.
type StructuredGenerator struct {
	gen         llm.Generator
	model       string
	temperature float32
	log         *logger.Logger
}

// NewStructuredGenerator creates a generator calling model through gen.
func NewStructuredGenerator(gen llm.Generator, model string, log *logger.Logger) *StructuredGenerator {
	return &StructuredGenerator{gen: gen, model: model, temperature: 0.2, log: log}
}

// ErrorVerdict wraps unusable model output in an ERROR verdict. The raw text
// is kept in the summary.
func ErrorVerdict(raw string) models.VerdictResult {
	return models.VerdictResult{
		Verdict:                          models.VerdictError,
		Section1Summary:                  raw,
		Section2LawExplanation:           ProcessingErrorMarker,
		Section3RealCaseExample:          ProcessingErrorMarker,
		Section4Caution:                  ProcessingErrorMarker,
		Section5CounselingRecommendation: ProcessingErrorMarker,
	}
}

// Generate never fails. Unparsable output becomes an ERROR verdict; a
// missing or unrecognized verdict label becomes PARTIAL.
func (g *StructuredGenerator) Generate(ctx context.Context, query, compressedContext string, history []models.HistoryMessage) models.VerdictResult {
	ctx, span := observability.StartSpan(ctx, "generator.generate")
	defer span.End()

	out, err := g.gen.Generate(ctx, llm.Request{
		Model:       g.model,
		System:      fmt.Sprintf(generatorSystemPrompt, compressedContext),
		History:     history,
		Prompt:      query,
		JSON:        true,
		Schema:      verdictSchema,
		Temperature: g.temperature,
	})
	if err != nil {
		g.log.Warn("verdict generation failed", "stage", "generator", "error", err)
		observability.MarkFallback(span, err)
		return ErrorVerdict(err.Error())
	}

	var v models.VerdictResult
	if err := decodeModelJSON(out, &v); err != nil {
		g.log.Warn("verdict output malformed", "stage", "generator", "error", err)
		observability.MarkFallback(span, err)
		return ErrorVerdict(out)
	}
	if v.Verdict == "" || v.Verdict == models.VerdictError {
		v.Verdict = models.VerdictPartial
	}
	if strings.TrimSpace(v.Section1Summary) == "" {
		g.log.Warn("verdict output has no summary", "stage", "generator")
		observability.MarkFallback(span, nil)
		return ErrorVerdict(out)
	}
	return v
}
