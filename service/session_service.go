package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"legalcheck-backend/models"
	"legalcheck-backend/repository"

	"github.com/google/uuid"
)

// SessionService exposes stored sessions, their attachments and audit
// records.
type SessionService struct {
	sessions    SessionStore
	claims      ClaimStore
	attachments AttachmentReader
	blobs       BlobReader
}

// SessionServiceOption configures a SessionService
type SessionServiceOption func(*SessionService)

// SessionWithAttachments enables attachment listing and download. A nil
// blobs reader leaves downloads disabled.
func SessionWithAttachments(records AttachmentReader, blobs BlobReader) SessionServiceOption {
	return func(s *SessionService) {
		s.attachments = records
		s.blobs = blobs
	}
}

// NewSessionService creates a new session service
func NewSessionService(sessions SessionStore, claims ClaimStore, opts ...SessionServiceOption) *SessionService {
	s := &SessionService{sessions: sessions, claims: claims}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListSessions returns a user's sessions, most recently active first.
func (s *SessionService) ListSessions(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	return sessions, nil
}

// Messages returns a session's messages in order after checking ownership.
func (s *SessionService) Messages(ctx context.Context, userID, sessionID uuid.UUID) ([]models.ChatMessage, error) {
	if _, err := s.owned(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	msgs, err := s.sessions.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return msgs, nil
}

// SetBookmark sets or clears the bookmark flag of an owned session.
func (s *SessionService) SetBookmark(ctx context.Context, userID, sessionID uuid.UUID, bookmarked bool) (*models.ChatSession, error) {
	session, err := s.owned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SetBookmark(ctx, sessionID, bookmarked); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to update bookmark: %w", err)
	}
	session.IsBookmarked = bookmarked
	return session, nil
}

// ClaimCheck returns one audit record.
func (s *SessionService) ClaimCheck(ctx context.Context, id uuid.UUID) (*models.ClaimCheck, error) {
	cc, err := s.claims.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrClaimNotFound
	}
	return cc, err
}

// Attachments lists the archived images of an owned session.
func (s *SessionService) Attachments(ctx context.Context, userID, sessionID uuid.UUID) ([]models.Attachment, error) {
	if _, err := s.owned(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	if s.attachments == nil {
		return []models.Attachment{}, nil
	}
	out, err := s.attachments.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Attachment{}
	}
	return out, nil
}

// OpenAttachment returns an attachment record and its bytes after checking
// that the owning session belongs to userID. The caller closes the reader.
func (s *SessionService) OpenAttachment(ctx context.Context, userID, attachmentID uuid.UUID) (*models.Attachment, io.ReadCloser, error) {
	if s.attachments == nil || s.blobs == nil {
		return nil, nil, ErrStorageDisabled
	}
	a, err := s.attachments.GetByID(ctx, attachmentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrAttachmentNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.owned(ctx, userID, a.SessionID); err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Download(ctx, a.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open attachment %s: %w", a.ID, err)
	}
	return a, rc, nil
}

func (s *SessionService) owned(ctx context.Context, userID, sessionID uuid.UUID) (*models.ChatSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionForbidden
	}
	return session, nil
}
