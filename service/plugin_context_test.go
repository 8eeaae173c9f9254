package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"legalcheck-backend/models"
	"legalcheck-backend/plugins"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubImages struct{ text string }

func (s stubImages) Analyze(ctx context.Context, imageBase64 string) string { return s.text }

type stubStatutes struct {
	mu      sync.Mutex
	lawName string
	keyword string
}

func (s *stubStatutes) Find(ctx context.Context, lawName, keyword string) ([]models.StatuteArticle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lawName, s.keyword = lawName, keyword
	return []models.StatuteArticle{{LawName: lawName, ArticleNumber: "제27조", Content: "서면 통지"}}, true
}

type stubPrecedents struct{}

func (stubPrecedents) Search(ctx context.Context, keywords []string) []models.PrecedentFinding {
	return []models.PrecedentFinding{{CaseNumber: "대법원 2012다14618", Summary: "서면 통지 필요"}}
}

func TestPluginRunner_CollectOrder(t *testing.T) {
	statutes := &stubStatutes{}
	r := NewPluginRunner(stubImages{text: "근로계약서"}, statutes, stubPrecedents{})

	got := r.Collect(context.Background(), PluginInput{
		Query:       "월급 200만원 받고 1년 일했는데 해고당했어요",
		ImageBase64: "aGVsbG8=",
		Intent:      models.IntentResult{LawDomain: "근로기준법, 근로자퇴직급여 보장법", Keywords: []string{"해고", "퇴직금"}},
		Routing: models.RoutingDecision{
			RequiresLawDBSearch:     true,
			RequiresPrecedentSearch: true,
			RequiresCalculator:      true,
			RequiresClarification:   true,
		},
	})

	require.Len(t, got, 5)
	assert.Equal(t, plugins.FormatImageAnalysis("근로계약서"), got[0])
	assert.True(t, strings.HasPrefix(got[1], "[법령 조문 (내부 데이터베이스 검색)]"))
	assert.True(t, strings.HasPrefix(got[2], "[관련 판례]"))
	assert.Contains(t, got[3], "2,296,650")
	assert.Equal(t, clarificationFragment, got[4])
	assert.Equal(t, "근로기준법", statutes.lawName)
	assert.Equal(t, "해고", statutes.keyword)
}

func TestPluginRunner_OnlySelected(t *testing.T) {
	r := NewPluginRunner(stubImages{text: "x"}, &stubStatutes{}, stubPrecedents{})
	got := r.Collect(context.Background(), PluginInput{
		Query:   "최저임금이 얼마야?",
		Routing: models.RoutingDecision{RequiresPrecedentSearch: true},
		Intent:  models.IntentResult{Keywords: []string{"최저임금"}},
	})
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], "[관련 판례]"))

	assert.Empty(t, NewPluginRunner(nil, nil, nil).Collect(context.Background(), PluginInput{
		ImageBase64: "x",
		Routing:     models.RoutingDecision{RequiresLawDBSearch: true, RequiresPrecedentSearch: true},
	}))
}

func TestLawNameFor(t *testing.T) {
	assert.Equal(t, "남녀고용평등법", lawNameFor(models.IntentResult{LawDomain: " 남녀고용평등법 "}))
	assert.Equal(t, DefaultLawName, lawNameFor(models.IntentResult{LawDomain: FallbackLawDomain}))
	assert.Equal(t, DefaultLawName, lawNameFor(models.IntentResult{}))
}
