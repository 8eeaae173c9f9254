package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter registers every route on a new gin engine.
func NewRouter(factCheck *FactCheckHandler, admin *AdminHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	api := r.Group("/api")
	{
		api.POST("/check", factCheck.Check)
		api.GET("/users/:id/sessions", factCheck.ListSessions)
		api.GET("/sessions/:id/messages", factCheck.Messages)
		api.PUT("/sessions/:id/bookmark", factCheck.SetBookmark)
		api.GET("/sessions/:id/attachments", factCheck.Attachments)
		api.GET("/attachments/:id", factCheck.DownloadAttachment)
		api.GET("/claims/:id", factCheck.GetClaim)

		adm := api.Group("/admin")
		adm.POST("/revisions", admin.CreateRevision)
		adm.GET("/index-jobs/failed", admin.FailedJobs)
		adm.POST("/index-jobs/:id/retry", admin.RetryJob)
		adm.DELETE("/explanations/:revisionId", admin.InvalidateExplanation)
	}
	return r
}
