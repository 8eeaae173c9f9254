package repository

import (
	"context"
	"fmt"

	"legalcheck-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttachmentRepository handles database operations for turn attachments
type AttachmentRepository struct {
	db *pgxpool.Pool
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Create creates a new attachment record
func (r *AttachmentRepository) Create(ctx context.Context, a *models.Attachment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO attachments (id, session_id, message_id, mime_type, size, storage_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		a.ID, a.SessionID, a.MessageID, a.MimeType, a.Size, a.StoragePath,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

// GetByID retrieves one attachment record
func (r *AttachmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	var a models.Attachment
	err := r.db.QueryRow(ctx, `
		SELECT id, session_id, message_id, mime_type, size, storage_path, created_at
		FROM attachments WHERE id = $1`, id,
	).Scan(&a.ID, &a.SessionID, &a.MessageID, &a.MimeType, &a.Size, &a.StoragePath, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// ListBySession retrieves all attachments of a session
func (r *AttachmentRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Attachment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, message_id, mime_type, size, storage_path, created_at
		FROM attachments WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var out []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.SessionID, &a.MessageID, &a.MimeType, &a.Size, &a.StoragePath, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
