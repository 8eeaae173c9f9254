package plugins

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"legalcheck-backend/logger"
	"legalcheck-backend/models"
)

// LookupFailedArticleNumber marks the single sentinel result returned when the
// registry could not be queried.
const LookupFailedArticleNumber = "-"

const maxLiveArticles = 3

// LawClient queries the public law registry for article text.
type LawClient struct {
	baseURL    string
	serviceKey string
	http       *http.Client
	log        *logger.Logger
}

// NewLawClient creates a registry client. A zero timeout means 10s.
func NewLawClient(baseURL, serviceKey string, timeout time.Duration, log *logger.Logger) *LawClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &LawClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: timeout},
		log:        log,
	}
}

// errHTTPStatus is a non-2xx reply from the registry.
type errHTTPStatus struct{ code int }

func (e errHTTPStatus) Error() string { return fmt.Sprintf("law registry returned HTTP %d", e.code) }

// Lookup returns up to three articles of lawName mentioning keyword. A law
// that the registry does not know yields no results. Any transport or parse
// error yields the single lookup-failed sentinel.
func (c *LawClient) Lookup(ctx context.Context, lawName, keyword string) []models.StatuteArticle {
	articles, err := c.lookup(ctx, lawName, keyword)
	if err != nil {
		c.log.Warn("live statute lookup failed", "law", lawName, "error", err)
		return []models.StatuteArticle{{
			LawName:       lawName,
			ArticleNumber: LookupFailedArticleNumber,
			Title:         "조문 확인 불가 (데이터포털 연동 중)",
			Content:       fmt.Sprintf("공공데이터포털 API 연동 중 오류 발생: %v", err),
		}}
	}
	return articles
}

func (c *LawClient) lookup(ctx context.Context, lawName, keyword string) ([]models.StatuteArticle, error) {
	q := url.Values{}
	q.Set("serviceKey", c.serviceKey)
	q.Set("target", "law")
	q.Set("type", "XML")
	q.Set("query", lawName)
	listDoc, err := c.get(ctx, "/lawSearchList.do", q)
	if err != nil {
		return nil, err
	}

	serial, err := firstLawSerial(listDoc)
	if err != nil {
		return nil, err
	}
	if serial == "" {
		return nil, nil
	}

	dq := url.Values{}
	dq.Set("serviceKey", c.serviceKey)
	dq.Set("target", "law")
	dq.Set("MST", serial)
	dq.Set("type", "XML")
	detailDoc, err := c.get(ctx, "/lawService.do", dq)
	var status errHTTPStatus
	if errors.As(err, &status) {
		// The detail endpoint is not always provisioned; the list reply may
		// still carry article units.
		detailDoc = listDoc
	} else if err != nil {
		return nil, err
	}

	units, err := articleUnits(detailDoc)
	if err != nil {
		return nil, err
	}
	var out []models.StatuteArticle
	for _, u := range units {
		full := u.fullText()
		if keyword != "" && !strings.Contains(full, keyword) && !strings.Contains(u.Title, keyword) {
			continue
		}
		out = append(out, models.StatuteArticle{
			LawName:       lawName,
			ArticleNumber: strings.TrimSpace(u.Number),
			Title:         strings.TrimSpace(u.Title),
			Content:       full,
		})
		if len(out) >= maxLiveArticles {
			break
		}
	}
	return out, nil
}

func (c *LawClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, errHTTPStatus{code: resp.StatusCode}
	}
	return body, nil
}

type lawEntry struct {
	Serial string `xml:"법령일련번호"`
}

type articleUnit struct {
	Number     string `xml:"조문번호"`
	Title      string `xml:"조문제목"`
	Content    string `xml:"조문내용"`
	Paragraphs []struct {
		Content string `xml:"항내용"`
		Items   []struct {
			Content string `xml:"호내용"`
		} `xml:"호"`
	} `xml:"항"`
}

// fullText joins the article body, then all paragraph texts, then all item texts.
func (u articleUnit) fullText() string {
	var paras, items []string
	for _, p := range u.Paragraphs {
		if t := strings.TrimSpace(p.Content); t != "" {
			paras = append(paras, t)
		}
		for _, it := range p.Items {
			if t := strings.TrimSpace(it.Content); t != "" {
				items = append(items, t)
			}
		}
	}
	parts := []string{strings.TrimSpace(u.Content), strings.Join(paras, "\n"), strings.Join(items, "\n")}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// eachElement decodes every element named name, at any depth, into a new T.
func eachElement[T any](doc []byte, name string, fn func(T) bool) error {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to parse registry XML: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != name {
			continue
		}
		var v T
		if err := dec.DecodeElement(&v, &start); err != nil {
			return fmt.Errorf("failed to decode <%s>: %w", name, err)
		}
		if !fn(v) {
			return nil
		}
	}
}

func firstLawSerial(doc []byte) (string, error) {
	var serial string
	err := eachElement(doc, "law", func(e lawEntry) bool {
		serial = strings.TrimSpace(e.Serial)
		return false
	})
	return serial, err
}

func articleUnits(doc []byte) ([]articleUnit, error) {
	var units []articleUnit
	err := eachElement(doc, "조문단위", func(u articleUnit) bool {
		units = append(units, u)
		return true
	})
	return units, err
}

// IsLookupFailed reports whether results is the lookup-failed sentinel.
func IsLookupFailed(results []models.StatuteArticle) bool {
	return len(results) == 1 && results[0].ArticleNumber == LookupFailedArticleNumber
}

// LiveLookup is the live registry capability.
type LiveLookup interface {
	Lookup(ctx context.Context, lawName, keyword string) []models.StatuteArticle
}

// LocalArticleSearch is the local full-text safety net.
type LocalArticleSearch interface {
	SearchArticles(ctx context.Context, lawName, keyword string, limit int) ([]models.LawArticleRevision, error)
}

// StatuteLookup tries the live registry first and falls back to local
// full-text search when the registry failed or found nothing.
type StatuteLookup struct {
	live  LiveLookup
	local LocalArticleSearch
	log   *logger.Logger
}

// NewStatuteLookup chains live and local lookups. Either may be nil.
func NewStatuteLookup(live LiveLookup, local LocalArticleSearch, log *logger.Logger) *StatuteLookup {
	if log == nil {
		log = logger.NewNop()
	}
	return &StatuteLookup{live: live, local: local, log: log}
}

// Find returns articles and whether they came from the local fallback.
func (s *StatuteLookup) Find(ctx context.Context, lawName, keyword string) ([]models.StatuteArticle, bool) {
	var live []models.StatuteArticle
	if s.live != nil {
		live = s.live.Lookup(ctx, lawName, keyword)
		if len(live) > 0 && !IsLookupFailed(live) {
			return live, false
		}
	}
	if s.local == nil {
		return live, false
	}

	revs, err := s.local.SearchArticles(ctx, lawName, keyword, maxLiveArticles)
	if err != nil {
		s.log.Warn("local article search failed", "law", lawName, "error", err)
		return live, false
	}
	out := make([]models.StatuteArticle, 0, len(revs))
	for _, r := range revs {
		out = append(out, models.StatuteArticle{
			LawName:       r.LawName,
			ArticleNumber: r.ArticleNumber,
			Title:         r.Title,
			Content:       r.Content,
		})
	}
	return out, true
}

// FormatStatutes renders looked-up articles as a plugin-context fragment.
func FormatStatutes(articles []models.StatuteArticle, fromLocal bool) string {
	header := "[법령 조문 실시간 조회]"
	if fromLocal {
		header = "[법령 조문 (내부 데이터베이스 검색)]"
	}
	if len(articles) == 0 {
		return header + "\n- 관련 조문을 찾지 못했습니다."
	}
	var b strings.Builder
	b.WriteString(header)
	for _, a := range articles {
		fmt.Fprintf(&b, "\n- %s %s", a.LawName, a.ArticleNumber)
		if a.Title != "" {
			fmt.Fprintf(&b, "(%s)", a.Title)
		}
		fmt.Fprintf(&b, ": %s", a.Content)
	}
	return b.String()
}
