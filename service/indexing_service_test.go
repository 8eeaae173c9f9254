package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"legalcheck-backend/models"
	"legalcheck-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// memJobs is an in-memory JobQueue.
type memJobs struct {
	mu       sync.Mutex
	jobs     []*models.IndexJob
	backoffs []time.Duration
}

func (m *memJobs) add(revisionID int64, content string, maxAttempts int) *models.IndexJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := &models.IndexJob{
		ID:          uuid.New(),
		RevisionID:  revisionID,
		Fingerprint: models.IndexFingerprint(revisionID, content),
		Payload:     models.IndexPayload{LawName: "근로기준법", ArticleNumber: "제26조", Title: "해고의 예고", Content: content},
		Status:      models.IndexJobPending,
		MaxAttempts: maxAttempts,
	}
	m.jobs = append(m.jobs, j)
	return j
}

func (m *memJobs) Claim(ctx context.Context, lease time.Duration) (*models.IndexJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.Status == models.IndexJobPending {
			j.Status = models.IndexJobInProgress
			j.Attempts++
			cp := *j
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memJobs) find(id uuid.UUID) *models.IndexJob {
	for _, j := range m.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

func (m *memJobs) Complete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.find(id).Status = models.IndexJobCompleted
	return nil
}

func (m *memJobs) Fail(ctx context.Context, id uuid.UUID, msg string, backoff time.Duration) (models.IndexJobStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.find(id)
	j.ErrorMessage = &msg
	m.backoffs = append(m.backoffs, backoff)
	if j.Attempts >= j.MaxAttempts {
		j.Status = models.IndexJobFailed
	} else {
		j.Status = models.IndexJobPending
	}
	return j.Status, nil
}

func (m *memJobs) ListFailed(ctx context.Context, limit int) ([]models.IndexJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.IndexJob
	for _, j := range m.jobs {
		if j.Status == models.IndexJobFailed {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memJobs) Retry(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.find(id)
	if j == nil || j.Status != models.IndexJobFailed {
		return repository.ErrNotFound
	}
	j.Status = models.IndexJobPending
	j.Attempts = 0
	return nil
}

type memRevisions struct {
	revs []models.LawArticleRevision
	jobs *memJobs
}

func (m *memRevisions) CreateRevisionWithIndexJob(ctx context.Context, in repository.NewRevision, maxAttempts int) (*models.LawArticleRevision, *models.IndexJob, error) {
	rev := models.LawArticleRevision{ID: int64(len(m.revs) + 1), LawName: in.LawName, ArticleNumber: in.ArticleNumber, Title: in.Title, Content: in.Content}
	m.revs = append(m.revs, rev)
	return &rev, m.jobs.add(rev.ID, rev.Content, maxAttempts), nil
}

func (m *memRevisions) GetRevision(ctx context.Context, id int64) (*models.LawArticleRevision, error) {
	for _, r := range m.revs {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRevisions) ListRevisions(ctx context.Context, afterID int64, limit int) ([]models.LawArticleRevision, error) {
	var out []models.LawArticleRevision
	for _, r := range m.revs {
		if r.ID > afterID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func newIndexingFixture(index VectorIndex) (*IndexingService, *memJobs, *memRevisions) {
	jobs := &memJobs{}
	revs := &memRevisions{jobs: jobs}
	svc := NewIndexingService(jobs, revs, index, nopLog(),
		IndexingWithPollInterval(5*time.Millisecond),
		IndexingWithMaxAttempts(2),
		IndexingWithBackoff(time.Second))
	return svc, jobs, revs
}

func TestIndexingService_SubmitAndRun(t *testing.T) {
	ctx := context.Background()
	index := &fakeIndex{}
	svc, jobs, _ := newIndexingFixture(index)

	rev, job, err := svc.SubmitRevision(ctx, repository.NewRevision{
		LawName: "근로기준법", ArticleNumber: "제26조", Title: "해고의 예고",
		Content: "사용자는 근로자를 해고하려면 적어도 30일 전에 예고를 하여야 한다.",
	})
	require.NoError(t, err)
	assert.Equal(t, rev.ID, job.RevisionID)
	assert.Equal(t, 2, job.MaxAttempts)

	processed, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, models.IndexJobCompleted, jobs.jobs[0].Status)

	require.Len(t, index.added, 1)
	require.Len(t, index.added[0], 1)
	p := index.added[0][0]
	assert.Equal(t, "근로기준법 제26조(해고의 예고)", p.SourceLabel)
	assert.Equal(t, rev.ID, *p.RevisionID)

	processed, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestIndexingService_FailureBackoffAndRetry(t *testing.T) {
	ctx := context.Background()
	index := &fakeIndex{addErr: errors.New("embedding quota exceeded")}
	svc, jobs, _ := newIndexingFixture(index)
	job := jobs.add(7, "본문", 2)

	_, err := svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.IndexJobPending, jobs.jobs[0].Status)

	_, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.IndexJobFailed, jobs.jobs[0].Status)
	assert.Equal(t, "embedding quota exceeded", *jobs.jobs[0].ErrorMessage)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, jobs.backoffs)

	failed, err := svc.FailedJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, job.ID, failed[0].ID)

	index.addErr = nil
	require.NoError(t, svc.RetryJob(ctx, job.ID))
	_, err = svc.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.IndexJobCompleted, jobs.jobs[0].Status)
}

func TestIndexingService_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	index := &fakeIndex{}
	svc, jobs, _ := newIndexingFixture(index)
	jobs.add(1, "가", 3)
	jobs.add(2, "나", 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		index.mu.Lock()
		defer index.mu.Unlock()
		return len(index.added) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestIndexingService_Reindex(t *testing.T) {
	ctx := context.Background()
	index := &fakeIndex{}
	svc, _, revs := newIndexingFixture(index)
	for i := 0; i < 3; i++ {
		_, _, err := revs.CreateRevisionWithIndexJob(ctx, repository.NewRevision{LawName: "근로기준법", ArticleNumber: "제1조", Content: "목적"}, 1)
		require.NoError(t, err)
	}

	n, err := svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, index.added, 3)
}

func TestBackoffFor(t *testing.T) {
	assert.Equal(t, 5*time.Second, backoffFor(5*time.Second, 0))
	assert.Equal(t, 5*time.Second, backoffFor(5*time.Second, 1))
	assert.Equal(t, 20*time.Second, backoffFor(5*time.Second, 3))
	assert.Equal(t, maxIndexBackoff, backoffFor(5*time.Second, 20))
}

func TestChunkRevision(t *testing.T) {
	long := strings.Repeat("가", 1500)
	payload := models.IndexPayload{LawName: "근로기준법", ArticleNumber: "제2조", Content: "① 첫 항\n\n② 둘째 항\n" + long}

	got := ChunkRevision(2, payload)

	require.Len(t, got, 3)
	assert.Equal(t, "① 첫 항\n② 둘째 항", got[0].Content)
	assert.Equal(t, 1000, len([]rune(got[1].Content)))
	assert.Equal(t, 500, len([]rune(got[2].Content)))
	for i, p := range got {
		assert.Equal(t, int64(2), *p.RevisionID)
		assert.Equal(t, "근로기준법 제2조", p.SourceLabel)
		assert.Equal(t, i, p.RawMetadata["chunk_index"])
	}
	assert.Empty(t, ChunkRevision(1, models.IndexPayload{Content: " \n "}))
}
