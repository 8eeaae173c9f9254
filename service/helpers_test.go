package service

import (
	"context"
	"strings"
	"sync"

	"legalcheck-backend/llm"
	"legalcheck-backend/logger"
	"legalcheck-backend/models"
)

const (
	stageIntent      = "intent"
	stageRouter      = "router"
	stageReformulate = "reformulate"
	stageCompress    = "compress"
	stageGenerate    = "generate"
	stageValidate    = "validate"
	stageImage       = "image"
)

func stageOf(req llm.Request) string {
	switch {
	case req.System == intentSystemPrompt:
		return stageIntent
	case req.System == routerSystemPrompt:
		return stageRouter
	case req.System == reformulateSystemPrompt:
		return stageReformulate
	case req.System == compressorSystemPrompt:
		return stageCompress
	case req.System == validatorSystemPrompt:
		return stageValidate
	case strings.HasPrefix(req.System, "당신은 '법률/규정 기반 팩트체커'"):
		return stageGenerate
	}
	return stageImage
}

// scriptedLLM answers each pipeline stage with a canned response.
type scriptedLLM struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     map[string][]llm.Request
}

func newScriptedLLM(responses map[string]string) *scriptedLLM {
	return &scriptedLLM{responses: responses, errs: map[string]error{}, calls: map[string][]llm.Request{}}
}

func (s *scriptedLLM) fail(stage string, err error) *scriptedLLM {
	s.errs[stage] = err
	return s
}

func (s *scriptedLLM) generator() *llm.MockGenerator {
	return llm.NewMockGenerator(func(req llm.Request) (string, error) {
		stage := stageOf(req)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.calls[stage] = append(s.calls[stage], req)
		if err := s.errs[stage]; err != nil {
			return "", err
		}
		return s.responses[stage], nil
	})
}

func (s *scriptedLLM) callsFor(stage string) []llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]llm.Request(nil), s.calls[stage]...)
}

// keywordEmbedder places text on axes of a few legal topics.
func keywordEmbedder() *llm.MockEmbedder {
	axes := []string{"해고", "임금", "퇴직", "근로시간"}
	return &llm.MockEmbedder{Vector: func(text string) []float32 {
		v := make([]float32, len(axes)+1)
		for i, a := range axes {
			v[i] = float32(strings.Count(text, a))
		}
		v[len(axes)] = 0.1
		return v
	}}
}

// fakeIndex records searches and returns fixed passages.
type fakeIndex struct {
	mu       sync.Mutex
	passages []models.RetrievedPassage
	err      error
	searched []string
	added    [][]models.RetrievedPassage
	addErr   error
}

func (f *fakeIndex) Search(ctx context.Context, text string, k int) ([]models.RetrievedPassage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, text)
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.passages) {
		return f.passages[:k], nil
	}
	return f.passages, nil
}

func (f *fakeIndex) Add(ctx context.Context, passages []models.RetrievedPassage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, passages)
	return nil
}

func int64Ptr(v int64) *int64 { return &v }

func nopLog() *logger.Logger { return logger.NewNop() }

const (
	dismissalIntentJSON  = `{"intent":"문자 해고의 위법 여부","law_domain":"근로기준법","keywords":["부당해고","서면통지","해고예고"],"is_legal_question":true,"is_counseling_request":true}`
	dismissalRoutingJSON = `{"requires_law_db_search":true,"requires_precedent_search":true,"requires_calculator":false,"requires_clarification":false,"reasoning":"해고의 정당성은 판례 확인이 필요합니다."}`
	dismissalVerdictJSON = `{"verdict":"사실","section_1_summary":"문자 해고는 서면통지 의무 위반으로 무효가 될 수 있습니다.","section_2_law_explanation":"근로기준법 제27조는 해고 사유와 시기를 서면으로 알리도록 합니다.","section_3_real_case_example":"카카오톡으로 해고를 통보받은 근로자가 부당해고 구제신청을 한 사례가 있습니다.","section_4_caution":"근무 기간이 3개월 미만이면 해고예고 규정이 적용되지 않을 수 있습니다.","section_5_counseling_recommendation":"관할 노동위원회나 고용노동부 상담센터(1350)에 문의하세요."}`
)

func dismissalPassages() []models.RetrievedPassage {
	return []models.RetrievedPassage{
		{Content: "사용자는 근로자를 해고하려면 해고사유와 해고시기를 서면으로 통지하여야 한다.", SourceLabel: "근로기준법 제27조(해고사유 등의 서면통지)", RevisionID: int64Ptr(27)},
		{Content: "사용자는 근로자를 해고하려면 적어도 30일 전에 예고를 하여야 한다.", SourceLabel: "근로기준법 제26조(해고의 예고)", RevisionID: int64Ptr(26)},
		{Content: "사용자는 근로자에게 정당한 이유 없이 해고를 하지 못한다.", SourceLabel: "근로기준법 제23조(해고 등의 제한)", RevisionID: nil},
	}
}
