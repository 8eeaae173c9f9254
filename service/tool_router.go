package service

import (
	"context"
	"encoding/json"

	"legalcheck-backend/llm"
	"legalcheck-backend/logger"
	"legalcheck-backend/models"
	"legalcheck-backend/observability"

	"github.com/google/generative-ai-go/genai"
)

// FallbackRoutingReasoning explains the conservative default decision.
const FallbackRoutingReasoning = "분석 오류 발생. 기본적으로 법령 검색만 수행합니다."

var routingSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"requires_law_db_search":    {Type: genai.TypeBoolean},
		"requires_precedent_search": {Type: genai.TypeBoolean},
		"requires_calculator":       {Type: genai.TypeBoolean},
		"requires_clarification":    {Type: genai.TypeBoolean},
		"reasoning":                 {Type: genai.TypeString},
	},
	Required: []string{
		"requires_law_db_search", "requires_precedent_search",
		"requires_calculator", "requires_clarification", "reasoning",
	},
}

// ToolRouter decides which auxiliary capabilities run for a turn. It only
// sees the IntentResult, never the raw query.
type ToolRouter struct {
	gen   llm.Generator
	model string
	guard *RoutingGuard
	log   *logger.Logger
}

// NewToolRouter creates a router. guard may be nil, in which case the Go
// form of the guard rule is applied.
func NewToolRouter(gen llm.Generator, model string, guard *RoutingGuard, log *logger.Logger) *ToolRouter {
	return &ToolRouter{gen: gen, model: model, guard: guard, log: log}
}

// FallbackRoutingDecision searches the statute index only.
func FallbackRoutingDecision() models.RoutingDecision {
	return models.RoutingDecision{
		RequiresLawDBSearch: true,
		Reasoning:           FallbackRoutingReasoning,
	}
}

type rawRouting struct {
	RequiresLawDBSearch     *bool  `json:"requires_law_db_search"`
	RequiresPrecedentSearch *bool  `json:"requires_precedent_search"`
	RequiresCalculator      *bool  `json:"requires_calculator"`
	RequiresClarification   *bool  `json:"requires_clarification"`
	Reasoning               string `json:"reasoning"`
}

func (r rawRouting) complete() bool {
	return r.RequiresLawDBSearch != nil && r.RequiresPrecedentSearch != nil &&
		r.RequiresCalculator != nil && r.RequiresClarification != nil
}

// Decide never fails; any error yields FallbackRoutingDecision.
func (r *ToolRouter) Decide(ctx context.Context, intent models.IntentResult) models.RoutingDecision {
	ctx, span := observability.StartSpan(ctx, "router.decide")
	defer span.End()

	intentJSON, err := json.Marshal(intent)
	if err != nil {
		observability.MarkFallback(span, err)
		return FallbackRoutingDecision()
	}

	out, err := r.gen.Generate(ctx, llm.Request{
		Model:  r.model,
		System: routerSystemPrompt,
		Prompt: "[분석된 의도]\n" + string(intentJSON),
		JSON:   true,
		Schema: routingSchema,
	})
	if err != nil {
		r.log.Warn("routing failed", "stage", "router", "error", err)
		observability.MarkFallback(span, err)
		return FallbackRoutingDecision()
	}

	var raw rawRouting
	if err := decodeModelJSON(out, &raw); err != nil || !raw.complete() {
		if err == nil {
			err = errNoJSONObject
		}
		r.log.Warn("routing output malformed", "stage", "router", "error", err)
		observability.MarkFallback(span, err)
		return FallbackRoutingDecision()
	}

	decision := models.RoutingDecision{
		RequiresLawDBSearch:     *raw.RequiresLawDBSearch,
		RequiresPrecedentSearch: *raw.RequiresPrecedentSearch,
		RequiresCalculator:      *raw.RequiresCalculator,
		RequiresClarification:   *raw.RequiresClarification,
		Reasoning:               raw.Reasoning,
	}
	return r.applyGuard(ctx, intent, decision)
}

func (r *ToolRouter) applyGuard(ctx context.Context, intent models.IntentResult, decision models.RoutingDecision) models.RoutingDecision {
	if r.guard == nil {
		return guardDecision(intent, decision)
	}
	guarded, err := r.guard.Apply(ctx, intent, decision)
	if err != nil {
		r.log.Warn("routing guard failed, applying built-in rule", "stage", "router", "error", err)
		return guardDecision(intent, decision)
	}
	return guarded
}
