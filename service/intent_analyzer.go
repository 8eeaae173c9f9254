package service

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"legalcheck-backend/llm"
	"legalcheck-backend/logger"
	"legalcheck-backend/models"
	"legalcheck-backend/observability"

	"github.com/google/generative-ai-go/genai"
)

const (
	minKeywords = 2
	maxKeywords = 5
)

// Fallback values used when intent analysis fails. The turn stays legal so
// downstream retrieval still runs.
const (
	FallbackIntent    = "분석 오류"
	FallbackLawDomain = "알 수 없음"
)

var intentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent":                {Type: genai.TypeString, Description: "사용자의 핵심 질문 또는 주장 요약 (1문장)"},
		"law_domain":            {Type: genai.TypeString, Description: "관련 법률 분야"},
		"keywords":              {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"is_legal_question":     {Type: genai.TypeBoolean},
		"is_counseling_request": {Type: genai.TypeBoolean},
	},
	Required: []string{"intent", "law_domain", "keywords", "is_legal_question", "is_counseling_request"},
}

// IntentAnalyzer extracts structured intent from raw query text.
type IntentAnalyzer struct {
	gen   llm.Generator
	model string
	log   *logger.Logger
}

// NewIntentAnalyzer creates an analyzer that calls model through gen.
func NewIntentAnalyzer(gen llm.Generator, model string, log *logger.Logger) *IntentAnalyzer {
	return &IntentAnalyzer{gen: gen, model: model, log: log}
}

type rawIntent struct {
	Intent              string   `json:"intent"`
	LawDomain           string   `json:"law_domain"`
	Keywords            []string `json:"keywords"`
	IsLegalQuestion     *bool    `json:"is_legal_question"`
	IsCounselingRequest *bool    `json:"is_counseling_request"`
}

// FallbackIntentResult is returned whenever analysis fails.
func FallbackIntentResult() models.IntentResult {
	return models.IntentResult{
		Intent:          FallbackIntent,
		LawDomain:       FallbackLawDomain,
		Keywords:        []string{},
		IsLegalQuestion: true,
	}
}

// Analyze never fails; malformed model output yields FallbackIntentResult.
func (a *IntentAnalyzer) Analyze(ctx context.Context, query string) models.IntentResult {
	ctx, span := observability.StartSpan(ctx, "intent.analyze")
	defer span.End()

	out, err := a.gen.Generate(ctx, llm.Request{
		Model:  a.model,
		System: intentSystemPrompt,
		Prompt: query,
		JSON:   true,
		Schema: intentSchema,
	})
	if err != nil {
		a.log.Warn("intent analysis failed", "stage", "intent", "error", err)
		observability.MarkFallback(span, err)
		return FallbackIntentResult()
	}

	var raw rawIntent
	if err := decodeModelJSON(out, &raw); err != nil || raw.IsLegalQuestion == nil || raw.IsCounselingRequest == nil {
		if err == nil {
			err = errNoJSONObject
		}
		a.log.Warn("intent output malformed", "stage", "intent", "error", err)
		observability.MarkFallback(span, err)
		return FallbackIntentResult()
	}

	res := models.IntentResult{
		Intent:              strings.TrimSpace(raw.Intent),
		LawDomain:           strings.TrimSpace(raw.LawDomain),
		IsLegalQuestion:     *raw.IsLegalQuestion,
		IsCounselingRequest: *raw.IsCounselingRequest,
	}
	if res.LawDomain == "" {
		res.LawDomain = FallbackLawDomain
	}
	extra := append([]string{res.Intent, res.LawDomain}, queryTerms(query)...)
	res.Keywords = normalizeKeywords(raw.Keywords, extra...)
	return res
}

// normalizeKeywords trims and de-duplicates keywords, caps them at
// maxKeywords and tops them up from extra (intent, law domain, then query
// terms) when the model returned fewer than minKeywords.
func normalizeKeywords(kws []string, extra ...string) []string {
	out := make([]string, 0, maxKeywords)
	seen := map[string]bool{}
	add := func(k string) {
		k = strings.TrimSpace(k)
		if k == "" || k == FallbackLawDomain || seen[k] || len(out) >= maxKeywords {
			return
		}
		seen[k] = true
		out = append(out, k)
	}
	for _, k := range kws {
		add(k)
	}
	for _, e := range extra {
		if len(out) >= minKeywords {
			break
		}
		add(e)
	}
	return out
}

var particleSuffixes = []string{"으로", "에서", "에게", "은", "는", "이", "가", "을", "를", "로", "도", "에"}

// queryTerms splits a query into words of at least two runes with a trailing
// particle removed.
func queryTerms(query string) []string {
	words := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	for _, w := range words {
		for _, p := range particleSuffixes {
			if trimmed := strings.TrimSuffix(w, p); trimmed != w && utf8.RuneCountInString(trimmed) >= 2 {
				w = trimmed
				break
			}
		}
		if utf8.RuneCountInString(w) >= 2 {
			out = append(out, w)
		}
	}
	return out
}
