package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"legalcheck-backend/models"
	"legalcheck-backend/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RevisionIndexer stores revisions and exposes the index job queue.
type RevisionIndexer interface {
	SubmitRevision(ctx context.Context, in repository.NewRevision) (*models.LawArticleRevision, *models.IndexJob, error)
	FailedJobs(ctx context.Context, limit int) ([]models.IndexJob, error)
	RetryJob(ctx context.Context, id uuid.UUID) error
}

// ExplanationInvalidator drops cached explanations.
type ExplanationInvalidator interface {
	Invalidate(ctx context.Context, revisionID int64) error
}

// AdminHandler handles statute administration requests
type AdminHandler struct {
	indexer      RevisionIndexer
	explanations ExplanationInvalidator
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(indexer RevisionIndexer, explanations ExplanationInvalidator) *AdminHandler {
	return &AdminHandler{indexer: indexer, explanations: explanations}
}

// CreateRevisionRequest represents the request body for a new statute revision
type CreateRevisionRequest struct {
	LawName       string `json:"law_name" binding:"required"`
	ArticleNumber string `json:"article_number" binding:"required"`
	Title         string `json:"title"`
	Content       string `json:"content" binding:"required"`
	EffectiveDate string `json:"effective_date"` // YYYY-MM-DD
}

// CreateRevision handles POST /api/admin/revisions
func (h *AdminHandler) CreateRevision(c *gin.Context) {
	var req CreateRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	in := repository.NewRevision{
		LawName:       req.LawName,
		ArticleNumber: req.ArticleNumber,
		Title:         req.Title,
		Content:       req.Content,
	}
	if req.EffectiveDate != "" {
		d, err := time.Parse(time.DateOnly, req.EffectiveDate)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_EFFECTIVE_DATE", "effective_date must be YYYY-MM-DD")
			return
		}
		in.EffectiveDate = &d
	}

	rev, job, err := h.indexer.SubmitRevision(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{
		"revision":  rev,
		"index_job": job,
	})
}

// FailedJobs handles GET /api/admin/index-jobs/failed?limit=
func (h *AdminHandler) FailedJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	jobs, err := h.indexer.FailedJobs(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, jobs)
}

// RetryJob handles POST /api/admin/index-jobs/:id/retry
func (h *AdminHandler) RetryJob(c *gin.Context) {
	id, ok := uuidParam(c, c.Param("id"), "INVALID_ID", "Invalid job ID format")
	if !ok {
		return
	}
	if err := h.indexer.RetryJob(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "Failed job not found")
			return
		}
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "status": models.IndexJobPending})
}

// InvalidateExplanation handles DELETE /api/admin/explanations/:revisionId
func (h *AdminHandler) InvalidateExplanation(c *gin.Context) {
	revisionID, err := strconv.ParseInt(c.Param("revisionId"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid revision ID format")
		return
	}
	if err := h.explanations.Invalidate(c.Request.Context(), revisionID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
