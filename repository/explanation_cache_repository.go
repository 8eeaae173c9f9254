package repository

import (
	"context"
	"errors"

	"legalcheck-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExplanationCacheRepository stores at most one explanation per revision
type ExplanationCacheRepository struct {
	db *pgxpool.Pool
}

// NewExplanationCacheRepository creates a new explanation cache repository
func NewExplanationCacheRepository(db *pgxpool.Pool) *ExplanationCacheRepository {
	return &ExplanationCacheRepository{db: db}
}

const explanationColumns = `revision_id, plain_summary, example_case, caution_note, created_at, updated_at`

func scanExplanation(row pgx.Row) (*models.ExplanationCacheEntry, error) {
	e := &models.ExplanationCacheEntry{}
	err := row.Scan(&e.RevisionID, &e.PlainSummary, &e.ExampleCase, &e.CautionNote, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Lookup returns the cached entry for a revision, or ErrNotFound
func (r *ExplanationCacheRepository) Lookup(ctx context.Context, revisionID int64) (*models.ExplanationCacheEntry, error) {
	e, err := scanExplanation(r.db.QueryRow(ctx,
		`SELECT `+explanationColumns+` FROM explanation_caches WHERE revision_id = $1`, revisionID))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// Store inserts the entry unless one already exists. The stored entry is
// returned either way, so concurrent writers all observe the winner.
func (r *ExplanationCacheRepository) Store(ctx context.Context, revisionID int64, exp models.Explanation) (*models.ExplanationCacheEntry, error) {
	e, err := scanExplanation(r.db.QueryRow(ctx, `
		INSERT INTO explanation_caches (revision_id, plain_summary, example_case, caution_note)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (revision_id) DO NOTHING
		RETURNING `+explanationColumns,
		revisionID, exp.PlainSummary, exp.ExampleCase, exp.CautionNote))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.Lookup(ctx, revisionID)
	}
	return e, err
}

// Replace overwrites the entry for a revision, creating it if needed
func (r *ExplanationCacheRepository) Replace(ctx context.Context, revisionID int64, exp models.Explanation) (*models.ExplanationCacheEntry, error) {
	return scanExplanation(r.db.QueryRow(ctx, `
		INSERT INTO explanation_caches (revision_id, plain_summary, example_case, caution_note)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (revision_id) DO UPDATE SET
			plain_summary = EXCLUDED.plain_summary,
			example_case = EXCLUDED.example_case,
			caution_note = EXCLUDED.caution_note,
			updated_at = NOW()
		RETURNING `+explanationColumns,
		revisionID, exp.PlainSummary, exp.ExampleCase, exp.CautionNote))
}

// Delete removes the entry for a revision
func (r *ExplanationCacheRepository) Delete(ctx context.Context, revisionID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM explanation_caches WHERE revision_id = $1`, revisionID)
	return err
}
