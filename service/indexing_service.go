package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"legalcheck-backend/logger"
	"legalcheck-backend/models"
	"legalcheck-backend/repository"

	"github.com/google/uuid"
)

const (
	chunkRunes      = 1000
	maxIndexBackoff = 5 * time.Minute
	reindexPageSize = 100
)

// JobQueue is the index job outbox.
type JobQueue interface {
	Claim(ctx context.Context, lease time.Duration) (*models.IndexJob, error)
	Complete(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string, backoff time.Duration) (models.IndexJobStatus, error)
	ListFailed(ctx context.Context, limit int) ([]models.IndexJob, error)
	Retry(ctx context.Context, id uuid.UUID) error
}

// RevisionStore creates and reads statute revisions.
type RevisionStore interface {
	CreateRevisionWithIndexJob(ctx context.Context, in repository.NewRevision, maxAttempts int) (*models.LawArticleRevision, *models.IndexJob, error)
	GetRevision(ctx context.Context, id int64) (*models.LawArticleRevision, error)
	ListRevisions(ctx context.Context, afterID int64, limit int) ([]models.LawArticleRevision, error)
}

var (
	_ JobQueue      = (*repository.IndexJobRepository)(nil)
	_ RevisionStore = (*repository.LawRepository)(nil)
)

// IndexingService moves committed revisions into the vector index through
// the job queue. Delivery is at least once; the index ignores redelivered
// chunks.
type IndexingService struct {
	jobs         JobQueue
	revisions    RevisionStore
	index        VectorIndex
	pollInterval time.Duration
	lease        time.Duration
	maxAttempts  int
	baseBackoff  time.Duration
	log          *logger.Logger
}

// IndexingOption is a functional option for IndexingService
type IndexingOption func(*IndexingService)

// IndexingWithPollInterval sets how long the worker sleeps on an empty queue
func IndexingWithPollInterval(d time.Duration) IndexingOption {
	return func(s *IndexingService) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// IndexingWithLease sets how long a claimed job stays invisible to others
func IndexingWithLease(d time.Duration) IndexingOption {
	return func(s *IndexingService) {
		if d > 0 {
			s.lease = d
		}
	}
}

// IndexingWithMaxAttempts sets the attempt budget of new jobs
func IndexingWithMaxAttempts(n int) IndexingOption {
	return func(s *IndexingService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// IndexingWithBackoff sets the base retry delay
func IndexingWithBackoff(d time.Duration) IndexingOption {
	return func(s *IndexingService) {
		if d > 0 {
			s.baseBackoff = d
		}
	}
}

// NewIndexingService creates an indexing service
func NewIndexingService(jobs JobQueue, revisions RevisionStore, index VectorIndex, log *logger.Logger, opts ...IndexingOption) *IndexingService {
	s := &IndexingService{
		jobs:         jobs,
		revisions:    revisions,
		index:        index,
		pollInterval: 2 * time.Second,
		lease:        time.Minute,
		maxAttempts:  5,
		baseBackoff:  5 * time.Second,
		log:          log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRevision stores a revision together with its index job.
func (s *IndexingService) SubmitRevision(ctx context.Context, in repository.NewRevision) (*models.LawArticleRevision, *models.IndexJob, error) {
	rev, job, err := s.revisions.CreateRevisionWithIndexJob(ctx, in, s.maxAttempts)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("revision submitted", "revision_id", rev.ID, "job_id", job.ID, "label", rev.SourceLabel())
	return rev, job, nil
}

// RunOnce processes at most one job and reports whether one was claimed.
func (s *IndexingService) RunOnce(ctx context.Context) (bool, error) {
	job, err := s.jobs.Claim(ctx, s.lease)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim index job: %w", err)
	}

	log := s.log.With("job_id", job.ID, "revision_id", job.RevisionID, "attempt", job.Attempts)
	if err := s.index.Add(ctx, ChunkRevision(job.RevisionID, job.Payload)); err != nil {
		status, ferr := s.jobs.Fail(ctx, job.ID, err.Error(), backoffFor(s.baseBackoff, job.Attempts))
		if ferr != nil {
			return true, fmt.Errorf("failed to record index failure: %w", ferr)
		}
		if status == models.IndexJobFailed {
			log.Error("index job failed permanently", "error", err)
		} else {
			log.Warn("index job failed, will retry", "error", err)
		}
		return true, nil
	}

	if err := s.jobs.Complete(ctx, job.ID); err != nil {
		return true, fmt.Errorf("failed to complete index job: %w", err)
	}
	log.Info("revision indexed")
	return true, nil
}

// Run drains the queue until ctx is done, sleeping between empty polls.
func (s *IndexingService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		for {
			processed, err := s.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.log.Warn("index worker error", "error", err)
				break
			}
			if !processed {
				break
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// FailedJobs lists jobs that exhausted their attempts.
func (s *IndexingService) FailedJobs(ctx context.Context, limit int) ([]models.IndexJob, error) {
	jobs, err := s.jobs.ListFailed(ctx, limit)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []models.IndexJob{}
	}
	return jobs, nil
}

// RetryJob requeues a failed job.
func (s *IndexingService) RetryJob(ctx context.Context, id uuid.UUID) error {
	return s.jobs.Retry(ctx, id)
}

// Reindex adds every stored revision to the index directly and returns how
// many revisions were processed.
func (s *IndexingService) Reindex(ctx context.Context) (int, error) {
	var afterID int64
	n := 0
	for {
		revs, err := s.revisions.ListRevisions(ctx, afterID, reindexPageSize)
		if err != nil {
			return n, err
		}
		if len(revs) == 0 {
			return n, nil
		}
		for _, rev := range revs {
			payload := models.IndexPayload{
				LawName:       rev.LawName,
				ArticleNumber: rev.ArticleNumber,
				Title:         rev.Title,
				Content:       rev.Content,
			}
			if err := s.index.Add(ctx, ChunkRevision(rev.ID, payload)); err != nil {
				return n, fmt.Errorf("revision %d: %w", rev.ID, err)
			}
			n++
			afterID = rev.ID
		}
	}
}

func backoffFor(base time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxIndexBackoff {
			return maxIndexBackoff
		}
	}
	return d
}

// ChunkRevision splits a revision into passages of about chunkRunes runes,
// breaking on paragraph boundaries where possible.
func ChunkRevision(revisionID int64, p models.IndexPayload) []models.RetrievedPassage {
	label := models.LawArticleRevision{LawName: p.LawName, ArticleNumber: p.ArticleNumber, Title: p.Title}.SourceLabel()
	var chunks []string
	var cur strings.Builder
	curRunes := 0
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		curRunes = 0
	}
	for _, para := range strings.Split(p.Content, "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		for _, piece := range splitRunes(para, chunkRunes) {
			n := len([]rune(piece))
			if curRunes > 0 && curRunes+n+1 > chunkRunes {
				flush()
			}
			if curRunes > 0 {
				cur.WriteByte('\n')
				curRunes++
			}
			cur.WriteString(piece)
			curRunes += n
		}
	}
	flush()

	out := make([]models.RetrievedPassage, len(chunks))
	for i, c := range chunks {
		id := revisionID
		out[i] = models.RetrievedPassage{
			Content:     c,
			SourceLabel: label,
			RevisionID:  &id,
			RawMetadata: map[string]any{
				"source":         label,
				"law_name":       p.LawName,
				"article_number": p.ArticleNumber,
				"chunk_index":    i,
			},
		}
	}
	return out
}

func splitRunes(s string, n int) []string {
	r := []rune(s)
	if len(r) <= n {
		return []string{s}
	}
	var out []string
	for len(r) > n {
		out = append(out, string(r[:n]))
		r = r[n:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}
