package repository

import (
	"context"
	"fmt"

	"legalcheck-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles chat sessions and their messages
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.ChatSession) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO chat_sessions (user_id, title, is_bookmarked)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		session.UserID, session.Title, session.IsBookmarked,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	s := &models.ChatSession{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, title, is_bookmarked, created_at, updated_at
		FROM chat_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.Title, &s.IsBookmarked, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// ListByUser returns a user's sessions, most recently active first
func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, title, is_bookmarked, created_at, updated_at
		FROM chat_sessions WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.ChatSession
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.IsBookmarked, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// SetBookmark updates the bookmark flag of a session
func (r *SessionRepository) SetBookmark(ctx context.Context, id uuid.UUID, bookmarked bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE chat_sessions SET is_bookmarked = $2, updated_at = NOW()
		WHERE id = $1`, id, bookmarked)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage appends a message and bumps the session's updated_at
func (r *SessionRepository) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO chat_messages (session_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		msg.SessionID, msg.Role, msg.Content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	_, err = r.db.Exec(ctx, `UPDATE chat_sessions SET updated_at = NOW() WHERE id = $1`, msg.SessionID)
	return err
}

// ListMessages returns a session's messages in insertion order
func (r *SessionRepository) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM chat_messages WHERE session_id = $1
		ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
