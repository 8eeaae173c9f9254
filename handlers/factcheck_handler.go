package handlers

import (
	"context"
	"io"
	"net/http"

	"legalcheck-backend/models"
	"legalcheck-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FactChecker runs one turn.
type FactChecker interface {
	Check(ctx context.Context, req service.CheckRequest) (*service.CheckResult, error)
}

// SessionReader exposes stored sessions.
type SessionReader interface {
	ListSessions(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error)
	Messages(ctx context.Context, userID, sessionID uuid.UUID) ([]models.ChatMessage, error)
	SetBookmark(ctx context.Context, userID, sessionID uuid.UUID, bookmarked bool) (*models.ChatSession, error)
	ClaimCheck(ctx context.Context, id uuid.UUID) (*models.ClaimCheck, error)
	Attachments(ctx context.Context, userID, sessionID uuid.UUID) ([]models.Attachment, error)
	OpenAttachment(ctx context.Context, userID, attachmentID uuid.UUID) (*models.Attachment, io.ReadCloser, error)
}

// FactCheckHandler handles HTTP requests for fact-checking turns and sessions
type FactCheckHandler struct {
	checker  FactChecker
	sessions SessionReader
}

// NewFactCheckHandler creates a new fact-check handler
func NewFactCheckHandler(checker FactChecker, sessions SessionReader) *FactCheckHandler {
	return &FactCheckHandler{checker: checker, sessions: sessions}
}

// CheckRequest represents the request body for a turn
type CheckRequest struct {
	Query       string  `json:"query" binding:"required"`
	SessionID   *string `json:"session_id"`
	ImageBase64 string  `json:"image_base64"`
}

// CheckResponse is the data returned for a turn
type CheckResponse struct {
	SessionID    uuid.UUID              `json:"session_id"`
	ClaimCheckID *uuid.UUID             `json:"claim_check_id,omitempty"`
	Result       models.VerdictResult   `json:"result"`
	VerdictLabel string                 `json:"verdict_label"`
	Sources      []string               `json:"sources"`
	RevisionIDs  []*int64               `json:"revision_ids"`
	Intent       models.IntentResult    `json:"intent"`
	Routing      models.RoutingDecision `json:"routing"`
}

// Check handles POST /api/check?user_id=
func (h *FactCheckHandler) Check(c *gin.Context) {
	userID, ok := uuidParam(c, c.Query("user_id"), "INVALID_USER_ID", "Invalid user_id format")
	if !ok {
		return
	}
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	serviceReq := service.CheckRequest{UserID: userID, Query: req.Query, ImageBase64: req.ImageBase64}
	if req.SessionID != nil && *req.SessionID != "" {
		sid, ok := uuidParam(c, *req.SessionID, "INVALID_SESSION_ID", "Invalid session_id format")
		if !ok {
			return
		}
		serviceReq.SessionID = &sid
	}

	res, err := h.checker.Check(c.Request.Context(), serviceReq)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, CheckResponse{
		SessionID:    res.SessionID,
		ClaimCheckID: res.ClaimCheckID,
		Result:       res.Result.Verdict,
		VerdictLabel: res.Result.Verdict.Verdict.Label(),
		Sources:      res.Result.SourceLabels,
		RevisionIDs:  res.Result.RevisionIDs,
		Intent:       res.Result.Intent,
		Routing:      res.Result.Routing,
	})
}

// ListSessions handles GET /api/users/:id/sessions
func (h *FactCheckHandler) ListSessions(c *gin.Context) {
	userID, ok := uuidParam(c, c.Param("id"), "INVALID_USER_ID", "Invalid user ID format")
	if !ok {
		return
	}
	sessions, err := h.sessions.ListSessions(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, sessions)
}

// Messages handles GET /api/sessions/:id/messages?user_id=
func (h *FactCheckHandler) Messages(c *gin.Context) {
	sessionID, ok := uuidParam(c, c.Param("id"), "INVALID_SESSION_ID", "Invalid session ID format")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, c.Query("user_id"), "INVALID_USER_ID", "Invalid user_id format")
	if !ok {
		return
	}
	msgs, err := h.sessions.Messages(c.Request.Context(), userID, sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, msgs)
}

// BookmarkRequest represents the request body for a bookmark toggle
type BookmarkRequest struct {
	Bookmarked *bool `json:"is_bookmarked" binding:"required"`
}

// SetBookmark handles PUT /api/sessions/:id/bookmark?user_id=
func (h *FactCheckHandler) SetBookmark(c *gin.Context) {
	sessionID, ok := uuidParam(c, c.Param("id"), "INVALID_SESSION_ID", "Invalid session ID format")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, c.Query("user_id"), "INVALID_USER_ID", "Invalid user_id format")
	if !ok {
		return
	}
	var req BookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	session, err := h.sessions.SetBookmark(c.Request.Context(), userID, sessionID, *req.Bookmarked)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, session)
}

// GetClaim handles GET /api/claims/:id
func (h *FactCheckHandler) GetClaim(c *gin.Context) {
	id, ok := uuidParam(c, c.Param("id"), "INVALID_ID", "Invalid claim ID format")
	if !ok {
		return
	}
	cc, err := h.sessions.ClaimCheck(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, cc)
}

// Attachments handles GET /api/sessions/:id/attachments?user_id=
func (h *FactCheckHandler) Attachments(c *gin.Context) {
	sessionID, ok := uuidParam(c, c.Param("id"), "INVALID_SESSION_ID", "Invalid session ID format")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, c.Query("user_id"), "INVALID_USER_ID", "Invalid user_id format")
	if !ok {
		return
	}
	list, err := h.sessions.Attachments(c.Request.Context(), userID, sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// DownloadAttachment handles GET /api/attachments/:id?user_id=
func (h *FactCheckHandler) DownloadAttachment(c *gin.Context) {
	id, ok := uuidParam(c, c.Param("id"), "INVALID_ID", "Invalid attachment ID format")
	if !ok {
		return
	}
	userID, ok := uuidParam(c, c.Query("user_id"), "INVALID_USER_ID", "Invalid user_id format")
	if !ok {
		return
	}
	a, rc, err := h.sessions.OpenAttachment(c.Request.Context(), userID, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, a.Size, a.MimeType, rc, nil)
}
