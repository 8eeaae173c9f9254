package service

import (
	"context"
	"encoding/json"

	"legalcheck-backend/llm"
	"legalcheck-backend/logger"
	"legalcheck-backend/models"
	"legalcheck-backend/observability"
)

// OutputValidator rewrites overconfident, jargon-heavy or emotional wording
// while keeping the verdict structure.
type OutputValidator struct {
	gen   llm.Generator
	model string
	log   *logger.Logger
}

// NewOutputValidator creates a validator calling model through gen.
func NewOutputValidator(gen llm.Generator, model string, log *logger.Logger) *OutputValidator {
	return &OutputValidator{gen: gen, model: model, log: log}
}

// Validate returns the rewritten draft. The verdict always equals the
// draft's, and an empty rewritten section keeps the draft's text. On any
// failure the draft is returned unchanged. ERROR drafts are not rewritten.
func (v *OutputValidator) Validate(ctx context.Context, draft models.VerdictResult) models.VerdictResult {
	ctx, span := observability.StartSpan(ctx, "validator.validate")
	defer span.End()

	if draft.Verdict == models.VerdictError {
		return draft
	}

	in, err := json.Marshal(labelledDraft(draft))
	if err != nil {
		observability.MarkFallback(span, err)
		return draft
	}
	out, err := v.gen.Generate(ctx, llm.Request{
		Model:  v.model,
		System: validatorSystemPrompt,
		Prompt: string(in),
		JSON:   true,
		Schema: verdictSchema,
	})
	if err != nil {
		v.log.Warn("output validation failed, keeping draft", "stage", "validator", "error", err)
		observability.MarkFallback(span, err)
		return draft
	}

	var got models.VerdictResult
	if err := decodeModelJSON(out, &got); err != nil {
		v.log.Warn("validator output malformed, keeping draft", "stage", "validator", "error", err)
		observability.MarkFallback(span, err)
		return draft
	}
	return mergeValidated(draft, got)
}

// labelledDraft shows the model the display label instead of the code.
func labelledDraft(d models.VerdictResult) map[string]string {
	return map[string]string{
		"verdict":                             d.Verdict.Label(),
		"section_1_summary":                   d.Section1Summary,
		"section_2_law_explanation":           d.Section2LawExplanation,
		"section_3_real_case_example":         d.Section3RealCaseExample,
		"section_4_caution":                   d.Section4Caution,
		"section_5_counseling_recommendation": d.Section5CounselingRecommendation,
	}
}

func mergeValidated(draft, got models.VerdictResult) models.VerdictResult {
	pick := func(validated, original string) string {
		if validated == "" {
			return original
		}
		return validated
	}
	return models.VerdictResult{
		Verdict:                          draft.Verdict,
		Section1Summary:                  pick(got.Section1Summary, draft.Section1Summary),
		Section2LawExplanation:           pick(got.Section2LawExplanation, draft.Section2LawExplanation),
		Section3RealCaseExample:          pick(got.Section3RealCaseExample, draft.Section3RealCaseExample),
		Section4Caution:                  pick(got.Section4Caution, draft.Section4Caution),
		Section5CounselingRecommendation: pick(got.Section5CounselingRecommendation, draft.Section5CounselingRecommendation),
	}
}
