package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"legalcheck-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService(t *testing.T) {
	ctx := context.Background()
	sessions := newMemSessions()
	claims := newMemClaims()
	svc := NewSessionService(sessions, claims)

	owner := uuid.New()
	s := &models.ChatSession{UserID: owner, Title: "문자 해고"}
	require.NoError(t, sessions.Create(ctx, s))
	require.NoError(t, sessions.AppendMessage(ctx, &models.ChatMessage{SessionID: s.ID, Role: models.RoleUser, Content: "q"}))

	list, err := svc.ListSessions(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)

	empty, err := svc.ListSessions(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)

	msgs, err := svc.Messages(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = svc.Messages(ctx, uuid.New(), s.ID)
	assert.ErrorIs(t, err, ErrSessionForbidden)
	_, err = svc.Messages(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	updated, err := svc.SetBookmark(ctx, owner, s.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsBookmarked)
	stored, _ := sessions.GetByID(ctx, s.ID)
	assert.True(t, stored.IsBookmarked)

	_, err = svc.ClaimCheck(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrClaimNotFound)
	cc := &models.ClaimCheck{SessionID: s.ID, ClaimText: "q", Verdict: models.VerdictPartial}
	require.NoError(t, claims.Create(ctx, cc))
	got, err := svc.ClaimCheck(ctx, cc.ID)
	require.NoError(t, err)
	assert.Equal(t, "q", got.ClaimText)
}

func TestSessionService_Attachments(t *testing.T) {
	ctx := context.Background()
	sessions := newMemSessions()
	records := &memAttachments{}
	blobs := &memBlobs{}
	svc := NewSessionService(sessions, newMemClaims(), SessionWithAttachments(records, blobs))

	owner := uuid.New()
	s := &models.ChatSession{UserID: owner, Title: "급여명세서"}
	require.NoError(t, sessions.Create(ctx, s))

	id := uuid.New()
	path, err := blobs.Upload(ctx, id, "turn.png", strings.NewReader("png"))
	require.NoError(t, err)
	require.NoError(t, records.Create(ctx, &models.Attachment{ID: id, SessionID: s.ID, MimeType: "image/png", Size: 3, StoragePath: path}))

	list, err := svc.Attachments(ctx, owner, s.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	_, err = svc.Attachments(ctx, uuid.New(), s.ID)
	assert.ErrorIs(t, err, ErrSessionForbidden)

	a, rc, err := svc.OpenAttachment(ctx, owner, id)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "png", string(body))
	assert.Equal(t, "image/png", a.MimeType)

	_, _, err = svc.OpenAttachment(ctx, uuid.New(), id)
	assert.ErrorIs(t, err, ErrSessionForbidden)
	_, _, err = svc.OpenAttachment(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, ErrAttachmentNotFound)

	plain := NewSessionService(sessions, newMemClaims())
	_, _, err = plain.OpenAttachment(ctx, owner, id)
	assert.ErrorIs(t, err, ErrStorageDisabled)
	empty, err := plain.Attachments(ctx, owner, s.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
