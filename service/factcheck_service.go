package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"legalcheck-backend/logger"
	"legalcheck-backend/models"
	"legalcheck-backend/plugins"
	"legalcheck-backend/repository"

	"github.com/google/uuid"
)

const sessionTitleRunes = 50

// FactCheckService persists turns around the pipeline: it owns session
// creation, history loading, per-session serialization and the audit trail.
type FactCheckService struct {
	users       UserStore
	sessions    SessionStore
	claims      ClaimStore
	attachments AttachmentStore
	blobs       BlobStore
	pipeline    TurnRunner
	locker      SessionLocker
	log         *logger.Logger
}

// FactCheckServiceOption is a functional option for FactCheckService
type FactCheckServiceOption func(*FactCheckService)

// FactCheckWithUserStore sets the user store
func FactCheckWithUserStore(s UserStore) FactCheckServiceOption {
	return func(f *FactCheckService) {
		f.users = s
	}
}

// FactCheckWithSessionStore sets the session store
func FactCheckWithSessionStore(s SessionStore) FactCheckServiceOption {
	return func(f *FactCheckService) {
		f.sessions = s
	}
}

// FactCheckWithClaimStore sets the claim-check store
func FactCheckWithClaimStore(s ClaimStore) FactCheckServiceOption {
	return func(f *FactCheckService) {
		f.claims = s
	}
}

// FactCheckWithAttachments sets where attached images are archived
func FactCheckWithAttachments(blobs BlobStore, records AttachmentStore) FactCheckServiceOption {
	return func(f *FactCheckService) {
		f.blobs = blobs
		f.attachments = records
	}
}

// FactCheckWithPipeline sets the pipeline
func FactCheckWithPipeline(p TurnRunner) FactCheckServiceOption {
	return func(f *FactCheckService) {
		f.pipeline = p
	}
}

// FactCheckWithSessionLocker sets the per-session lock
func FactCheckWithSessionLocker(l SessionLocker) FactCheckServiceOption {
	return func(f *FactCheckService) {
		f.locker = l
	}
}

// FactCheckWithLogger sets the logger
func FactCheckWithLogger(log *logger.Logger) FactCheckServiceOption {
	return func(f *FactCheckService) {
		f.log = log
	}
}

// NewFactCheckService creates a new fact-check service
func NewFactCheckService(opts ...FactCheckServiceOption) *FactCheckService {
	f := &FactCheckService{log: logger.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	if f.locker == nil {
		f.locker = NewLocalSessionLocker()
	}
	return f
}

// CheckRequest represents one user turn
type CheckRequest struct {
	UserID      uuid.UUID
	SessionID   *uuid.UUID // nil starts a new session
	Query       string
	ImageBase64 string
}

// CheckResult represents the answer to one turn
type CheckResult struct {
	SessionID    uuid.UUID   `json:"session_id"`
	ClaimCheckID *uuid.UUID  `json:"claim_check_id,omitempty"`
	Result       *TurnResult `json:"result"`
}

// Check runs one turn end to end.
func (f *FactCheckService) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	if f.users == nil || f.sessions == nil || f.pipeline == nil {
		return nil, errors.New("fact-check service not fully configured")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if _, err := f.users.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	session, err := f.openSession(ctx, req.UserID, req.SessionID, query)
	if err != nil {
		return nil, err
	}

	unlock, err := f.locker.Lock(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	msgs, err := f.sessions.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	history := HistoryFromMessages(msgs)

	userMsg := &models.ChatMessage{SessionID: session.ID, Role: models.RoleUser, Content: query}
	if err := f.sessions.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}
	if req.ImageBase64 != "" {
		f.archiveImage(ctx, session.ID, userMsg.ID, req.ImageBase64)
	}

	result, err := f.pipeline.Run(ctx, TurnInput{Query: query, History: history, ImageBase64: req.ImageBase64})
	if err != nil {
		f.log.Error("fact-check turn failed", "session_id", session.ID, "error", err)
		return nil, err
	}

	out := &CheckResult{SessionID: session.ID, Result: result}
	if f.claims != nil {
		cc := &models.ClaimCheck{
			SessionID:   session.ID,
			ClaimText:   query,
			Verdict:     result.Verdict.Verdict,
			Explanation: result.Verdict,
			RevisionIDs: result.LinkedRevisionIDs(),
		}
		if err := f.claims.Create(ctx, cc); err != nil {
			f.log.Warn("failed to store claim check", "session_id", session.ID, "error", err)
		} else {
			out.ClaimCheckID = &cc.ID
		}
	}

	content, err := json.Marshal(result.Verdict)
	if err != nil {
		return nil, fmt.Errorf("failed to encode verdict: %w", err)
	}
	if err := f.sessions.AppendMessage(ctx, &models.ChatMessage{
		SessionID: session.ID,
		Role:      models.RoleAssistant,
		Content:   string(content),
	}); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}

	f.log.Info("fact-check turn completed",
		"session_id", session.ID,
		"verdict", result.Verdict.Verdict,
		"sources", len(result.SourceLabels))
	return out, nil
}

func (f *FactCheckService) openSession(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID, query string) (*models.ChatSession, error) {
	if sessionID == nil {
		s := &models.ChatSession{UserID: userID, Title: sessionTitle(query)}
		if err := f.sessions.Create(ctx, s); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		return s, nil
	}
	s, err := f.sessions.GetByID(ctx, *sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s.UserID != userID {
		return nil, ErrSessionForbidden
	}
	return s, nil
}

func sessionTitle(query string) string {
	r := []rune(query)
	if len(r) > sessionTitleRunes {
		r = r[:sessionTitleRunes]
	}
	return string(r)
}

// archiveImage stores the attachment. Failures are logged and do not affect
// the turn.
func (f *FactCheckService) archiveImage(ctx context.Context, sessionID uuid.UUID, messageID int64, imageBase64 string) {
	if f.blobs == nil {
		return
	}
	img, err := plugins.DecodeImage(imageBase64)
	if err != nil {
		f.log.Warn("attachment not archived", "session_id", sessionID, "error", err)
		return
	}
	id := uuid.New()
	path, err := f.blobs.Upload(ctx, id, "turn"+imageExtension(img.MIMEType), bytes.NewReader(img.Data))
	if err != nil {
		f.log.Warn("attachment upload failed", "session_id", sessionID, "error", err)
		return
	}
	if f.attachments == nil {
		return
	}
	if err := f.attachments.Create(ctx, &models.Attachment{
		ID:          id,
		SessionID:   sessionID,
		MessageID:   messageID,
		MimeType:    img.MIMEType,
		Size:        int64(len(img.Data)),
		StoragePath: path,
	}); err != nil {
		f.log.Warn("attachment record failed", "session_id", sessionID, "error", err)
	}
}

func imageExtension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// HistoryFromMessages converts stored messages to pipeline history. Stored
// verdicts are rendered as their label and summary.
func HistoryFromMessages(msgs []models.ChatMessage) []models.HistoryMessage {
	out := make([]models.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		content := m.Content
		role := models.RoleUser
		if m.Role != models.RoleUser {
			role = models.RoleAssistant
			var v models.VerdictResult
			if err := json.Unmarshal([]byte(m.Content), &v); err == nil && v.Section1Summary != "" {
				content = fmt.Sprintf("판정: %s\n%s", v.Verdict.Label(), v.Section1Summary)
			}
		}
		out = append(out, models.HistoryMessage{Role: role, Content: content})
	}
	return out
}
