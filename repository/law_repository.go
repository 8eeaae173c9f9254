package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"legalcheck-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LawRepository handles statutes, articles and their revisions
type LawRepository struct {
	db   *pgxpool.Pool
	jobs *IndexJobRepository
}

// NewLawRepository creates a new law repository
func NewLawRepository(db *pgxpool.Pool, jobs *IndexJobRepository) *LawRepository {
	return &LawRepository{db: db, jobs: jobs}
}

// NewRevision describes a revision to be created.
type NewRevision struct {
	LawName       string
	ArticleNumber string
	Title         string
	Content       string
	EffectiveDate *time.Time
}

// CreateRevisionWithIndexJob stores the revision and enqueues its index job in
// the same transaction, so a committed revision always has a pending job.
func (r *LawRepository) CreateRevisionWithIndexJob(ctx context.Context, in NewRevision, maxAttempts int) (*models.LawArticleRevision, *models.IndexJob, error) {
	if strings.TrimSpace(in.LawName) == "" || strings.TrimSpace(in.ArticleNumber) == "" || strings.TrimSpace(in.Content) == "" {
		return nil, nil, errors.New("law name, article number and content are required")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var lawID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO laws (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, in.LawName).Scan(&lawID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to upsert law: %w", err)
	}

	var articleID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO law_articles (law_id, article_number, title) VALUES ($1, $2, $3)
		ON CONFLICT (law_id, article_number) DO UPDATE SET
			title = CASE WHEN EXCLUDED.title = '' THEN law_articles.title ELSE EXCLUDED.title END
		RETURNING id`, lawID, in.ArticleNumber, in.Title).Scan(&articleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to upsert article: %w", err)
	}

	rev := &models.LawArticleRevision{
		ArticleID:     articleID,
		LawName:       in.LawName,
		ArticleNumber: in.ArticleNumber,
		Title:         in.Title,
		Content:       in.Content,
		EffectiveDate: in.EffectiveDate,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO law_article_revisions (article_id, content, effective_date)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`, articleID, in.Content, in.EffectiveDate,
	).Scan(&rev.ID, &rev.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create revision: %w", err)
	}

	job, err := r.jobs.enqueue(ctx, tx, rev, maxAttempts)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit revision: %w", err)
	}
	return rev, job, nil
}

const revisionSelect = `
	SELECT rv.id, rv.article_id, l.name, a.article_number, a.title, rv.content, rv.effective_date, rv.created_at
	FROM law_article_revisions rv
	JOIN law_articles a ON a.id = rv.article_id
	JOIN laws l ON l.id = a.law_id`

func scanRevision(row pgx.Row) (*models.LawArticleRevision, error) {
	rev := &models.LawArticleRevision{}
	err := row.Scan(&rev.ID, &rev.ArticleID, &rev.LawName, &rev.ArticleNumber, &rev.Title,
		&rev.Content, &rev.EffectiveDate, &rev.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// GetRevision retrieves a revision with its article and law names
func (r *LawRepository) GetRevision(ctx context.Context, id int64) (*models.LawArticleRevision, error) {
	rev, err := scanRevision(r.db.QueryRow(ctx, revisionSelect+` WHERE rv.id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return rev, nil
}

// ListRevisions returns revisions in id order, optionally starting after a cursor
func (r *LawRepository) ListRevisions(ctx context.Context, afterID int64, limit int) ([]models.LawArticleRevision, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, revisionSelect+` WHERE rv.id > $1 ORDER BY rv.id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()
	return collectRevisions(rows)
}

// SearchArticles is the local full-text fallback for the live statute lookup.
// It matches the latest revision of each article of lawName whose text or
// title contains keyword.
func (r *LawRepository) SearchArticles(ctx context.Context, lawName, keyword string, limit int) ([]models.LawArticleRevision, error) {
	if limit <= 0 {
		limit = 3
	}
	query := `
		SELECT DISTINCT ON (a.id) rv.id, rv.article_id, l.name, a.article_number, a.title, rv.content, rv.effective_date, rv.created_at
		FROM law_article_revisions rv
		JOIN law_articles a ON a.id = rv.article_id
		JOIN laws l ON l.id = a.law_id
		WHERE ($1 = '' OR l.name ILIKE '%' || $1 || '%')
			AND ($2 = '' OR rv.content ILIKE '%' || $2 || '%' OR a.title ILIKE '%' || $2 || '%')
		ORDER BY a.id, rv.created_at DESC, rv.id DESC
		LIMIT $3`
	rows, err := r.db.Query(ctx, query, strings.TrimSpace(lawName), strings.TrimSpace(keyword), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	defer rows.Close()
	return collectRevisions(rows)
}

func collectRevisions(rows pgx.Rows) ([]models.LawArticleRevision, error) {
	var out []models.LawArticleRevision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		out = append(out, *rev)
	}
	return out, rows.Err()
}
