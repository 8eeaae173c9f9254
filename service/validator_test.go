package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"legalcheck-backend/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overconfidentDraft() models.VerdictResult {
	return models.VerdictResult{
		Verdict:                          models.VerdictTrue,
		Section1Summary:                  "100% 무조건 승소합니다! 힘내세요!",
		Section2LawExplanation:           "근로기준법 제27조에 따라 해고는 서면으로 통지해야 합니다.",
		Section3RealCaseExample:          "문자로 해고된 사례",
		Section4Caution:                  "사용자는 반드시 처벌받습니다.",
		Section5CounselingRecommendation: "노동위원회에 구제신청하세요.",
	}
}

func TestOutputValidator_RewritesAndKeepsVerdict(t *testing.T) {
	tests := []struct {
		name    string
		verdict string
	}{
		{"verdict changed", `"verdict":"사실 아님",`},
		{"verdict dropped", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := `{` + tt.verdict + `"section_1_summary":"부당해고로 인정될 가능성이 있습니다.","section_2_law_explanation":"근로기준법 제27조에 따라 해고는 서면으로 통지해야 합니다.","section_3_real_case_example":"문자로 해고된 사례","section_4_caution":"사용자가 처벌받을 수 있습니다.","section_5_counseling_recommendation":""}`
			s := newScriptedLLM(map[string]string{stageValidate: out})
			got := NewOutputValidator(s.generator(), "light", nopLog()).Validate(context.Background(), overconfidentDraft())

			want := overconfidentDraft()
			want.Section1Summary = "부당해고로 인정될 가능성이 있습니다."
			want.Section4Caution = "사용자가 처벌받을 수 있습니다."
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("validated result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOutputValidator_SendsLabelledDraft(t *testing.T) {
	s := newScriptedLLM(map[string]string{stageValidate: "{}"})
	NewOutputValidator(s.generator(), "light", nopLog()).Validate(context.Background(), overconfidentDraft())

	calls := s.callsFor(stageValidate)
	require.Len(t, calls, 1)
	var sent map[string]string
	require.NoError(t, json.Unmarshal([]byte(calls[0].Prompt), &sent))
	assert.Equal(t, models.LabelTrue, sent["verdict"])
	assert.Len(t, sent, 6)
}

func TestOutputValidator_FailureReturnsDraft(t *testing.T) {
	for _, s := range []*scriptedLLM{
		newScriptedLLM(nil).fail(stageValidate, errors.New("deadline exceeded")),
		newScriptedLLM(map[string]string{stageValidate: "검수 결과: 문제 없음"}),
		newScriptedLLM(map[string]string{stageValidate: `{"section_1_summary": 3}`}),
	} {
		got := NewOutputValidator(s.generator(), "light", nopLog()).Validate(context.Background(), overconfidentDraft())
		assert.Equal(t, overconfidentDraft(), got)
	}
}

func TestOutputValidator_SkipsErrorDraft(t *testing.T) {
	s := newScriptedLLM(nil)
	draft := ErrorVerdict("raw")
	got := NewOutputValidator(s.generator(), "light", nopLog()).Validate(context.Background(), draft)
	assert.Equal(t, draft, got)
	assert.Empty(t, s.callsFor(stageValidate))
}
