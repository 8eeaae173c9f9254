package plugins

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"legalcheck-backend/models"

	"gopkg.in/yaml.v3"
)

//go:embed catalog/precedents.yaml
var defaultCatalog []byte

// Placeholder case numbers. They are never real case numbers.
const (
	NoPrecedentCaseNumber          = "검색 결과 없음"
	PrecedentUnavailableCaseNumber = "판례 검색 불가"
)

// PrecedentSource looks up case summaries for keywords.
type PrecedentSource interface {
	Lookup(ctx context.Context, keywords []string) ([]models.PrecedentFinding, error)
}

// PrecedentTopic groups cases under a dispute topic.
type PrecedentTopic struct {
	Topic   string                    `yaml:"topic"`
	Aliases []string                  `yaml:"aliases"`
	Cases   []models.PrecedentFinding `yaml:"cases"`
}

// PrecedentCatalog is an in-memory PrecedentSource loaded from YAML.
type PrecedentCatalog struct {
	Topics []PrecedentTopic `yaml:"topics"`
}

// LoadPrecedentCatalog reads the catalog at path, or the embedded catalog
// when path is empty.
func LoadPrecedentCatalog(path string) (*PrecedentCatalog, error) {
	raw := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read precedent catalog: %w", err)
		}
		raw = b
	}
	var c PrecedentCatalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse precedent catalog: %w", err)
	}
	return &c, nil
}

// Lookup returns cases whose topic or alias contains a keyword or is
// contained in one. Results keep first-seen order without duplicates.
func (c *PrecedentCatalog) Lookup(ctx context.Context, keywords []string) ([]models.PrecedentFinding, error) {
	var out []models.PrecedentFinding
	seen := map[string]bool{}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		for _, t := range c.Topics {
			if !t.matches(kw) {
				continue
			}
			for _, cs := range t.Cases {
				if seen[cs.CaseNumber] {
					continue
				}
				seen[cs.CaseNumber] = true
				out = append(out, cs)
			}
		}
	}
	return out, nil
}

func (t PrecedentTopic) matches(kw string) bool {
	for _, name := range append([]string{t.Topic}, t.Aliases...) {
		if name != "" && (strings.Contains(kw, name) || strings.Contains(name, kw)) {
			return true
		}
	}
	return false
}

// PrecedentSearch wraps a source so it never fails: a miss and an
// unreachable source each yield a distinct single placeholder finding.
type PrecedentSearch struct {
	source PrecedentSource
}

// NewPrecedentSearch creates a precedent search over source.
func NewPrecedentSearch(source PrecedentSource) *PrecedentSearch {
	return &PrecedentSearch{source: source}
}

// Search returns matching precedents or a placeholder finding.
func (p *PrecedentSearch) Search(ctx context.Context, keywords []string) []models.PrecedentFinding {
	found, err := p.source.Lookup(ctx, keywords)
	if err != nil {
		return []models.PrecedentFinding{{
			CaseNumber: PrecedentUnavailableCaseNumber,
			Summary:    fmt.Sprintf("판례 데이터베이스에 연결할 수 없어 판례를 확인하지 못했습니다 (%v). 관련 조문을 위주로 확인하시기 바랍니다.", err),
		}}
	}
	if len(found) == 0 {
		return []models.PrecedentFinding{{
			CaseNumber: NoPrecedentCaseNumber,
			Summary:    fmt.Sprintf("입력하신 키워드(%s)와 일치하는 주요 판례를 찾지 못했습니다. 관련 조문을 위주로 확인하시기 바랍니다.", strings.Join(keywords, ", ")),
		}}
	}
	return found
}

// FormatPrecedents renders findings as a plugin-context fragment.
func FormatPrecedents(findings []models.PrecedentFinding) string {
	var b strings.Builder
	b.WriteString("[관련 판례]\n")
	for _, f := range findings {
		fmt.Fprintf(&b, "- %s: %s\n", f.CaseNumber, f.Summary)
	}
	return strings.TrimRight(b.String(), "\n")
}
