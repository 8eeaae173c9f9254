package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"legalcheck-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IndexJobRepository is the durable queue of revisions awaiting indexing
type IndexJobRepository struct {
	db *pgxpool.Pool
}

// NewIndexJobRepository creates a new index job repository
func NewIndexJobRepository(db *pgxpool.Pool) *IndexJobRepository {
	return &IndexJobRepository{db: db}
}

const indexJobColumns = `id, revision_id, fingerprint, payload, status, attempts, max_attempts,
	error_message, run_after, locked_until, created_at, updated_at, completed_at`

func scanIndexJob(row pgx.Row) (*models.IndexJob, error) {
	job := &models.IndexJob{}
	err := row.Scan(
		&job.ID,
		&job.RevisionID,
		&job.Fingerprint,
		&job.Payload,
		&job.Status,
		&job.Attempts,
		&job.MaxAttempts,
		&job.ErrorMessage,
		&job.RunAfter,
		&job.LockedUntil,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Enqueue queues a revision for indexing. A job with the same fingerprint is
// returned instead of creating a duplicate.
func (r *IndexJobRepository) Enqueue(ctx context.Context, rev *models.LawArticleRevision, maxAttempts int) (*models.IndexJob, error) {
	return r.enqueue(ctx, r.db, rev, maxAttempts)
}

func (r *IndexJobRepository) enqueue(ctx context.Context, q dbtx, rev *models.LawArticleRevision, maxAttempts int) (*models.IndexJob, error) {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	fingerprint := models.IndexFingerprint(rev.ID, rev.Content)
	payload := models.IndexPayload{
		LawName:       rev.LawName,
		ArticleNumber: rev.ArticleNumber,
		Title:         rev.Title,
		Content:       rev.Content,
	}

	job, err := scanIndexJob(q.QueryRow(ctx, `
		INSERT INTO index_jobs (revision_id, fingerprint, payload, max_attempts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fingerprint) DO NOTHING
		RETURNING `+indexJobColumns,
		rev.ID, fingerprint, payload, maxAttempts,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		job, err = scanIndexJob(q.QueryRow(ctx,
			`SELECT `+indexJobColumns+` FROM index_jobs WHERE fingerprint = $1`, fingerprint))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue index job: %w", err)
	}
	return job, nil
}

// Claim leases the next runnable job. Jobs whose lease expired are claimable
// again. Returns ErrNotFound when the queue is empty.
func (r *IndexJobRepository) Claim(ctx context.Context, lease time.Duration) (*models.IndexJob, error) {
	job, err := scanIndexJob(r.db.QueryRow(ctx, `
		UPDATE index_jobs SET
			status = 'in_progress',
			attempts = attempts + 1,
			locked_until = NOW() + ($1 * INTERVAL '1 millisecond'),
			updated_at = NOW()
		WHERE id = (
			SELECT id FROM index_jobs
			WHERE (status = 'pending' AND run_after <= NOW())
				OR (status = 'in_progress' AND locked_until < NOW())
			ORDER BY run_after, created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+indexJobColumns, lease.Milliseconds()))
	if err != nil {
		return nil, notFound(err)
	}
	return job, nil
}

// Complete marks a job as completed
func (r *IndexJobRepository) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE index_jobs SET
			status = $2,
			locked_until = NULL,
			error_message = NULL,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1`, id, models.IndexJobCompleted)
	return err
}

// Fail records a failed attempt. The job is rescheduled after backoff, or
// marked failed once it has used all attempts. The resulting status is returned.
func (r *IndexJobRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string, backoff time.Duration) (models.IndexJobStatus, error) {
	var status models.IndexJobStatus
	err := r.db.QueryRow(ctx, `
		UPDATE index_jobs SET
			status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
			run_after = NOW() + ($3 * INTERVAL '1 millisecond'),
			locked_until = NULL,
			error_message = $2,
			updated_at = NOW()
		WHERE id = $1
		RETURNING status`, id, errorMessage, backoff.Milliseconds()).Scan(&status)
	if err != nil {
		return "", notFound(err)
	}
	return status, nil
}

// ListFailed returns jobs that exhausted their attempts
func (r *IndexJobRepository) ListFailed(ctx context.Context, limit int) ([]models.IndexJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+indexJobColumns+` FROM index_jobs
		WHERE status = 'failed'
		ORDER BY updated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.IndexJob
	for rows.Next() {
		job, err := scanIndexJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan index job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Retry puts a failed job back in the queue with a fresh attempt budget
func (r *IndexJobRepository) Retry(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE index_jobs SET status = 'pending', attempts = 0, run_after = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'failed'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
