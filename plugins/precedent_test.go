package plugins

import (
	"context"
	"errors"
	"testing"

	"legalcheck-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedCatalogLoads(t *testing.T) {
	c, err := LoadPrecedentCatalog("")
	require.NoError(t, err)
	require.NotEmpty(t, c.Topics)
}

func TestPrecedentSearch(t *testing.T) {
	catalog, err := LoadPrecedentCatalog("")
	require.NoError(t, err)
	search := NewPrecedentSearch(catalog)

	tests := []struct {
		name     string
		keywords []string
		first    string
		count    int
	}{
		{"topic keyword", []string{"부당해고"}, "대법원 2012다14618", 2},
		{"keyword inside topic", []string{"해고", "문자"}, "대법원 2012다14618", 2},
		{"deduplicated across keywords", []string{"부당해고", "해고통보"}, "대법원 2012다14618", 2},
		{"two topics", []string{"임금체불", "부당해고"}, "대법원 2018도15783", 3},
		{"no match", []string{"주차"}, NoPrecedentCaseNumber, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := search.Search(context.Background(), tt.keywords)
			require.Len(t, got, tt.count)
			assert.Equal(t, tt.first, got[0].CaseNumber)
		})
	}
}

type failingSource struct{}

func (failingSource) Lookup(context.Context, []string) ([]models.PrecedentFinding, error) {
	return nil, errors.New("connection refused")
}

func TestPrecedentSearchUnavailableIsDistinctFromMiss(t *testing.T) {
	got := NewPrecedentSearch(failingSource{}).Search(context.Background(), []string{"부당해고"})
	require.Len(t, got, 1)
	assert.Equal(t, PrecedentUnavailableCaseNumber, got[0].CaseNumber)
	assert.NotEqual(t, NoPrecedentCaseNumber, got[0].CaseNumber)
	assert.Contains(t, got[0].Summary, "connection refused")
}

func TestFormatPrecedents(t *testing.T) {
	out := FormatPrecedents([]models.PrecedentFinding{{CaseNumber: "A", Summary: "s"}})
	assert.Equal(t, "[관련 판례]\n- A: s", out)
}
