package repository

import (
	"context"
	"fmt"

	"legalcheck-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClaimCheckRepository persists the per-turn audit records
type ClaimCheckRepository struct {
	db *pgxpool.Pool
}

// NewClaimCheckRepository creates a new claim check repository
func NewClaimCheckRepository(db *pgxpool.Pool) *ClaimCheckRepository {
	return &ClaimCheckRepository{db: db}
}

// Create stores a claim check together with its revision links
func (r *ClaimCheckRepository) Create(ctx context.Context, cc *models.ClaimCheck) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var sessionID *uuid.UUID
	if cc.SessionID != uuid.Nil {
		sessionID = &cc.SessionID
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO claim_checks (session_id, claim_text, verdict, explanation)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		sessionID, cc.ClaimText, cc.Verdict, cc.Explanation,
	).Scan(&cc.ID, &cc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create claim check: %w", err)
	}

	for _, revID := range cc.RevisionIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO claim_revisions (claim_id, revision_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, cc.ID, revID)
		if err != nil {
			return fmt.Errorf("failed to link revision %d: %w", revID, err)
		}
	}
	return tx.Commit(ctx)
}

// GetByID retrieves a claim check with its linked revision ids
func (r *ClaimCheckRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ClaimCheck, error) {
	cc := &models.ClaimCheck{}
	var sessionID *uuid.UUID
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.session_id, c.claim_text, c.verdict, c.explanation, c.created_at,
			COALESCE(ARRAY_AGG(cr.revision_id ORDER BY cr.revision_id) FILTER (WHERE cr.revision_id IS NOT NULL), '{}')
		FROM claim_checks c
		LEFT JOIN claim_revisions cr ON cr.claim_id = c.id
		WHERE c.id = $1
		GROUP BY c.id`, id,
	).Scan(&cc.ID, &sessionID, &cc.ClaimText, &cc.Verdict, &cc.Explanation, &cc.CreatedAt, &cc.RevisionIDs)
	if err != nil {
		return nil, notFound(err)
	}
	if sessionID != nil {
		cc.SessionID = *sessionID
	}
	return cc, nil
}
