package service

import (
	"context"
	"io"

	"legalcheck-backend/models"
	"legalcheck-backend/repository"

	"github.com/google/uuid"
)

// UserStore reads users.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SessionStore owns sessions and their message history.
type SessionStore interface {
	Create(ctx context.Context, session *models.ChatSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ChatSession, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error)
	SetBookmark(ctx context.Context, id uuid.UUID, bookmarked bool) error
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]models.ChatMessage, error)
}

// ClaimStore persists claim-check audit records.
type ClaimStore interface {
	Create(ctx context.Context, cc *models.ClaimCheck) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ClaimCheck, error)
}

// BlobStore archives attachment bytes.
type BlobStore interface {
	Upload(ctx context.Context, fileID uuid.UUID, filename string, data io.Reader) (string, error)
}

// AttachmentStore records archived attachments.
type AttachmentStore interface {
	Create(ctx context.Context, a *models.Attachment) error
}

// AttachmentReader reads attachment records.
type AttachmentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Attachment, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Attachment, error)
}

// BlobReader opens archived attachment bytes.
type BlobReader interface {
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)
}

// TurnRunner runs the fact-checking pipeline for one turn.
type TurnRunner interface {
	Run(ctx context.Context, in TurnInput) (*TurnResult, error)
}

var (
	_ UserStore        = (*repository.UserRepository)(nil)
	_ SessionStore     = (*repository.SessionRepository)(nil)
	_ ClaimStore       = (*repository.ClaimCheckRepository)(nil)
	_ AttachmentStore  = (*repository.AttachmentRepository)(nil)
	_ AttachmentReader = (*repository.AttachmentRepository)(nil)
	_ TurnRunner       = (*Pipeline)(nil)
)
