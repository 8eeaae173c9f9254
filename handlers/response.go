package handlers

import (
	"errors"
	"net/http"

	"legalcheck-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondServiceError maps service sentinels to the error envelope.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyQuery):
		respondError(c, http.StatusBadRequest, "EMPTY_QUERY", err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "USER_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrSessionForbidden):
		respondError(c, http.StatusForbidden, "INVALID_SESSION", err.Error())
	case errors.Is(err, service.ErrClaimNotFound):
		respondError(c, http.StatusNotFound, "CLAIM_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrAttachmentNotFound):
		respondError(c, http.StatusNotFound, "ATTACHMENT_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrStorageDisabled):
		respondError(c, http.StatusServiceUnavailable, "STORAGE_DISABLED", err.Error())
	case errors.Is(err, service.ErrRevisionNotFound):
		respondError(c, http.StatusNotFound, "REVISION_NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrIndexUninitialized):
		respondError(c, http.StatusServiceUnavailable, "INDEX_UNINITIALIZED", "statute index is not initialized yet")
	case errors.Is(err, service.ErrLockTimeout):
		respondError(c, http.StatusConflict, "SESSION_BUSY", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// uuidParam parses a UUID path or query value, writing a 400 on failure.
func uuidParam(c *gin.Context, raw, code, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, code, message)
		return uuid.Nil, false
	}
	return id, true
}
