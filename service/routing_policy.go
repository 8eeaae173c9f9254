package service

import (
	"context"
	"encoding/json"
	"fmt"

	"legalcheck-backend/models"

	"github.com/open-policy-agent/opa/rego"
)

// routingGuardPolicy keeps non-legal turns away from the precedent,
// calculator and clarification tools.
const routingGuardPolicy = `
package routing_guard

default non_legal = false

non_legal {
	input.intent.is_legal_question == false
}

decision = out {
	not non_legal
	out := input.decision
}

decision = out {
	non_legal
	out := {
		"requires_law_db_search": input.decision.requires_law_db_search,
		"requires_precedent_search": false,
		"requires_calculator": false,
		"requires_clarification": false,
		"reasoning": input.decision.reasoning,
	}
}
`

// RoutingGuard evaluates the routing guard policy.
type RoutingGuard struct {
	query rego.PreparedEvalQuery
}

// NewRoutingGuard prepares the routing guard policy.
func NewRoutingGuard(ctx context.Context) (*RoutingGuard, error) {
	r := rego.New(
		rego.Query("data.routing_guard.decision"),
		rego.Module("routing_guard.rego", routingGuardPolicy),
	)
	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare routing guard: %w", err)
	}
	return &RoutingGuard{query: query}, nil
}

// Apply returns the decision allowed by the policy for intent.
func (g *RoutingGuard) Apply(ctx context.Context, intent models.IntentResult, decision models.RoutingDecision) (models.RoutingDecision, error) {
	input, err := toRegoInput(map[string]any{"intent": intent, "decision": decision})
	if err != nil {
		return decision, err
	}
	results, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return decision, fmt.Errorf("failed to evaluate routing guard: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return decision, fmt.Errorf("routing guard returned no decision")
	}
	raw, err := json.Marshal(results[0].Expressions[0].Value)
	if err != nil {
		return decision, err
	}
	var out models.RoutingDecision
	if err := json.Unmarshal(raw, &out); err != nil {
		return decision, fmt.Errorf("routing guard returned unexpected value: %w", err)
	}
	return out, nil
}

// guardDecision is the Go form of routingGuardPolicy.
func guardDecision(intent models.IntentResult, decision models.RoutingDecision) models.RoutingDecision {
	if intent.IsLegalQuestion {
		return decision
	}
	decision.RequiresPrecedentSearch = false
	decision.RequiresCalculator = false
	decision.RequiresClarification = false
	return decision
}

func toRegoInput(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
