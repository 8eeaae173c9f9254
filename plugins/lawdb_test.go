package plugins

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"legalcheck-backend/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listXML = `<?xml version="1.0" encoding="UTF-8"?>
<LawSearch><totalCnt>1</totalCnt>
  <law id="1"><법령일련번호>265959</법령일련번호><법령명한글>근로기준법</법령명한글></law>
</LawSearch>`

const detailXML = `<?xml version="1.0" encoding="UTF-8"?>
<법령><조문>
  <조문단위><조문번호>23</조문번호><조문제목>해고 등의 제한</조문제목>
    <조문내용>제23조(해고 등의 제한)</조문내용>
    <항><항내용>① 사용자는 근로자에게 정당한 이유 없이 해고를 하지 못한다.</항내용></항>
  </조문단위>
  <조문단위><조문번호>27</조문번호><조문제목>해고사유 등의 서면통지</조문제목>
    <조문내용>제27조(해고사유 등의 서면통지)</조문내용>
    <항><항내용>① 사용자는 근로자를 해고하려면 해고사유와 해고시기를 서면으로 통지하여야 한다.</항내용>
      <호><호내용>1. 서면</호내용></호></항>
  </조문단위>
  <조문단위><조문번호>50</조문번호><조문제목>근로시간</조문제목>
    <조문내용>제50조(근로시간)</조문내용>
  </조문단위>
</조문></법령>`

func newRegistry(t *testing.T, detailStatus int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("serviceKey"))
		switch r.URL.Path {
		case "/lawSearchList.do":
			assert.Equal(t, "근로기준법", r.URL.Query().Get("query"))
			_, _ = w.Write([]byte(listXML))
		case "/lawService.do":
			assert.Equal(t, "265959", r.URL.Query().Get("MST"))
			if detailStatus != http.StatusOK {
				w.WriteHeader(detailStatus)
				return
			}
			_, _ = w.Write([]byte(detailXML))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLawClientLookupFiltersByKeyword(t *testing.T) {
	srv := newRegistry(t, http.StatusOK)
	c := NewLawClient(srv.URL, "test-key", 0, nil)

	got := c.Lookup(context.Background(), "근로기준법", "해고")
	want := []models.StatuteArticle{
		{LawName: "근로기준법", ArticleNumber: "23", Title: "해고 등의 제한",
			Content: "제23조(해고 등의 제한)\n① 사용자는 근로자에게 정당한 이유 없이 해고를 하지 못한다."},
		{LawName: "근로기준법", ArticleNumber: "27", Title: "해고사유 등의 서면통지",
			Content: "제27조(해고사유 등의 서면통지)\n① 사용자는 근로자를 해고하려면 해고사유와 해고시기를 서면으로 통지하여야 한다.\n1. 서면"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Lookup mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, IsLookupFailed(got))
}

func TestLawClientDetailHTTPErrorUsesListDocument(t *testing.T) {
	srv := newRegistry(t, http.StatusForbidden)
	c := NewLawClient(srv.URL, "test-key", 0, nil)

	// The list reply has no article units, so this is a genuine empty result.
	got := c.Lookup(context.Background(), "근로기준법", "")
	assert.Empty(t, got)
	assert.False(t, IsLookupFailed(got))
}

func TestLawClientNetworkErrorReturnsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	for _, law := range []string{"근로기준법", "최저임금법", ""} {
		got := NewLawClient(url, "k", 0, nil).Lookup(context.Background(), law, "해고")
		require.Len(t, got, 1)
		assert.Equal(t, LookupFailedArticleNumber, got[0].ArticleNumber)
		assert.True(t, IsLookupFailed(got), law)
	}
}

func TestLawClientMalformedXMLReturnsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<LawSearch><law><법령일련번호>1"))
	}))
	defer srv.Close()

	got := NewLawClient(srv.URL, "k", 0, nil).Lookup(context.Background(), "근로기준법", "")
	assert.True(t, IsLookupFailed(got))
}

func TestIsLookupFailed(t *testing.T) {
	assert.False(t, IsLookupFailed(nil))
	assert.True(t, IsLookupFailed([]models.StatuteArticle{{ArticleNumber: "-"}}))
	assert.False(t, IsLookupFailed([]models.StatuteArticle{{ArticleNumber: "-"}, {ArticleNumber: "-"}}))
	assert.False(t, IsLookupFailed([]models.StatuteArticle{{ArticleNumber: "23"}}))
}

type stubLive struct{ out []models.StatuteArticle }

func (s stubLive) Lookup(context.Context, string, string) []models.StatuteArticle { return s.out }

type stubLocal struct {
	calls int
	out   []models.LawArticleRevision
	err   error
}

func (s *stubLocal) SearchArticles(ctx context.Context, lawName, keyword string, limit int) ([]models.LawArticleRevision, error) {
	s.calls++
	return s.out, s.err
}

func TestStatuteLookupFallback(t *testing.T) {
	localRev := models.LawArticleRevision{LawName: "근로기준법", ArticleNumber: "제27조", Title: "해고사유 등의 서면통지", Content: "서면 통지"}
	sentinel := []models.StatuteArticle{{ArticleNumber: LookupFailedArticleNumber}}
	genuine := []models.StatuteArticle{{LawName: "근로기준법", ArticleNumber: "23"}}

	tests := []struct {
		name       string
		live       []models.StatuteArticle
		wantLocal  bool
		wantNumber string
	}{
		{"sentinel falls back", sentinel, true, "제27조"},
		{"empty falls back", nil, true, "제27조"},
		{"genuine result kept", genuine, false, "23"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := &stubLocal{out: []models.LawArticleRevision{localRev}}
			got, fromLocal := NewStatuteLookup(stubLive{tt.live}, local, nil).Find(context.Background(), "근로기준법", "해고")
			assert.Equal(t, tt.wantLocal, fromLocal)
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantNumber, got[0].ArticleNumber)
			if tt.wantLocal {
				assert.Equal(t, 1, local.calls)
			} else {
				assert.Zero(t, local.calls)
			}
		})
	}
}

func TestStatuteLookupLocalErrorKeepsSentinel(t *testing.T) {
	sentinel := []models.StatuteArticle{{ArticleNumber: LookupFailedArticleNumber, Content: "down"}}
	got, fromLocal := NewStatuteLookup(stubLive{sentinel}, &stubLocal{err: errors.New("db down")}, nil).
		Find(context.Background(), "근로기준법", "")
	assert.False(t, fromLocal)
	assert.True(t, IsLookupFailed(got))
}

func TestFormatStatutes(t *testing.T) {
	out := FormatStatutes([]models.StatuteArticle{{LawName: "근로기준법", ArticleNumber: "제27조", Title: "서면통지", Content: "c"}}, true)
	assert.Equal(t, "[법령 조문 (내부 데이터베이스 검색)]\n- 근로기준법 제27조(서면통지): c", out)
	assert.Contains(t, FormatStatutes(nil, false), "찾지 못했습니다")
}
