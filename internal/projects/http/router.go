package http

import "github.com/gin-gonic/gin"

// Register attaches project routes. public serves unauthenticated callers;
// private must already resolve the user (auth.WithUser). revisionLimit, when
// set, guards revision submissions.
func (h *Handler) Register(public, private *gin.RouterGroup, revisionLimit gin.HandlerFunc) {
	public.GET("/published", h.listPublished)

	revision := []gin.HandlerFunc{h.submitRevision}
	if revisionLimit != nil {
		revision = append([]gin.HandlerFunc{revisionLimit}, revision...)
	}

	private.POST("", h.create)
	private.GET("", h.list)
	private.POST("/revision/:projectId", revision...)
	private.POST("/rollback/:projectId/:versionId", h.rollback)
	private.GET("/preview/:projectId", h.preview)
	private.GET("/version/:projectId/:versionId", h.versionCode)
	private.POST("/save/:projectId", h.save)
	private.PATCH("/publish/:projectId", h.setPublished)
	private.GET("/timeline/:projectId", h.timelineView)
	private.GET("/timeline/:projectId/stream", h.streamTimeline)
	private.GET("/:projectId", h.publishedCode)
	private.DELETE("/:projectId", h.delete)
}

// RegisterUser attaches the /api/user routes.
func (h *Handler) RegisterUser(private *gin.RouterGroup) {
	private.GET("/credits", h.credits)
}
