package service

import (
	"context"
	"errors"
	"testing"

	"legalcheck-backend/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentAnalyzer_Analyze(t *testing.T) {
	s := newScriptedLLM(map[string]string{stageIntent: "```json\n" + dismissalIntentJSON + "\n```"})
	a := NewIntentAnalyzer(s.generator(), "light", nopLog())

	got := a.Analyze(context.Background(), "회사에서 문자로 해고당했고 두 달 일했어요")

	want := models.IntentResult{
		Intent:              "문자 해고의 위법 여부",
		LawDomain:           "근로기준법",
		Keywords:            []string{"부당해고", "서면통지", "해고예고"},
		IsLegalQuestion:     true,
		IsCounselingRequest: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("intent mismatch (-want +got):\n%s", diff)
	}
	calls := s.callsFor(stageIntent)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].JSON)
	assert.NotNil(t, calls[0].Schema)
}

func TestIntentAnalyzer_Fallback(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
	}{
		{"generation error", "", errors.New("quota exceeded")},
		{"not json", "죄송합니다. 분석할 수 없습니다.", nil},
		{"missing flags", `{"intent":"인사","law_domain":"없음","keywords":["안녕"]}`, nil},
		{"wrong types", `{"intent":1,"law_domain":"x","keywords":"a","is_legal_question":"yes","is_counseling_request":false}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScriptedLLM(map[string]string{stageIntent: tt.out})
			if tt.err != nil {
				s.fail(stageIntent, tt.err)
			}
			got := NewIntentAnalyzer(s.generator(), "light", nopLog()).Analyze(context.Background(), "아무 말")
			assert.Equal(t, FallbackIntentResult(), got)
			assert.True(t, got.IsLegalQuestion)
			assert.False(t, got.IsCounselingRequest)
			assert.Empty(t, got.Keywords)
		})
	}
}

func TestIntentAnalyzer_NonLegal(t *testing.T) {
	s := newScriptedLLM(map[string]string{stageIntent: `{"intent":"인사","law_domain":"알 수 없음","keywords":["인사"],"is_legal_question":false,"is_counseling_request":false}`})
	got := NewIntentAnalyzer(s.generator(), "light", nopLog()).Analyze(context.Background(), "안녕하세요!")
	assert.False(t, got.IsLegalQuestion)
	assert.Equal(t, FallbackLawDomain, got.LawDomain)
	assert.Equal(t, []string{"인사", "안녕하세요"}, got.Keywords)
}

func TestIntentAnalyzer_TopsUpKeywordsFromQuery(t *testing.T) {
	s := newScriptedLLM(map[string]string{stageIntent: `{"intent":"","law_domain":"","keywords":["해고"],"is_legal_question":true,"is_counseling_request":false}`})
	got := NewIntentAnalyzer(s.generator(), "light", nopLog()).Analyze(context.Background(), "해고를 문자로 통보받았어요")
	assert.Equal(t, []string{"해고", "문자"}, got.Keywords)
	assert.GreaterOrEqual(t, len(got.Keywords), 2)
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"해고", "문자", "통보받았어요"}, queryTerms("해고를 문자로 통보받았어요?"))
	assert.Equal(t, []string{"월급", "200만원"}, queryTerms("월급은 200만원"))
	assert.Empty(t, queryTerms("a ? !"))
}

func TestNormalizeKeywords(t *testing.T) {
	tests := []struct {
		name  string
		in    []string
		extra []string
		want  []string
	}{
		{"dedupe and trim", []string{" 해고 ", "해고", "", "퇴직금"}, nil, []string{"해고", "퇴직금"}},
		{"cap at five", []string{"a", "b", "c", "d", "e", "f"}, nil, []string{"a", "b", "c", "d", "e"}},
		{"top up from intent", []string{"해고"}, []string{"문자 해고", "근로기준법"}, []string{"해고", "문자 해고"}},
		{"unknown domain skipped", nil, []string{"", FallbackLawDomain, "안녕"}, []string{"안녕"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeKeywords(tt.in, tt.extra...))
		})
	}
}
