package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roshanmishra15/site-builder/internal/auth"
	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

type createReq struct {
	Name          string `json:"name" binding:"required,notblank"`
	InitialPrompt string `json:"initial_prompt"`
}

type revisionReq struct {
	Message string `json:"message" binding:"required,notblank"`
}

type saveReq struct {
	Code string `json:"code" binding:"required,notblank"`
}

type publishReq struct {
	IsPublished *bool `json:"is_published" binding:"required"`
}

// userID returns the resolved caller, writing 401 when there is none.
func (h *Handler) userID(c *gin.Context) (string, bool) {
	id := auth.UserDBID(c)
	if id == "" {
		h.fail(c, domain.ErrUnauthenticated, "")
		return "", false
	}
	return id, true
}

func (h *Handler) create(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Project name is required"})
		return
	}

	p, err := h.projects.Create(c.Request.Context(), userID, req.Name, req.InitialPrompt)
	if err != nil {
		h.fail(c, err, "User not found")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

func (h *Handler) list(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	items, err := h.projects.List(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "Project not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": items})
}

func (h *Handler) submitRevision(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req revisionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Please enter a valid prompt"})
		return
	}

	if err := h.revisions.SubmitRevision(c.Request.Context(), c.Param("projectId"), userID, req.Message); err != nil {
		h.fail(c, err, "Project not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Changes made successfully"})
}

func (h *Handler) rollback(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	err := h.ledger.Rollback(c.Request.Context(), c.Param("projectId"), userID, c.Param("versionId"))
	if err != nil {
		h.fail(c, err, "Version not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rollback successful"})
}

func (h *Handler) preview(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	code, err := h.projects.Preview(c.Request.Context(), c.Param("projectId"), userID)
	if err != nil {
		h.fail(c, err, "Project not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

func (h *Handler) versionCode(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	code, err := h.projects.VersionCode(c.Request.Context(), c.Param("projectId"), userID, c.Param("versionId"))
	if err != nil {
		h.fail(c, err, "Version not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

func (h *Handler) publishedCode(c *gin.Context) {
	if _, ok := h.userID(c); !ok {
		return
	}

	code, err := h.projects.PublishedCode(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		h.fail(c, err, "Project not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

func (h *Handler) save(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req saveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Code is required"})
		return
	}

	if _, err := h.ledger.Save(c.Request.Context(), c.Param("projectId"), userID, req.Code); err != nil {
		h.fail(c, err, "Project not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project saved successfully"})
}

func (h *Handler) setPublished(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	var req publishReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "is_published is required"})
		return
	}

	p, err := h.projects.SetPublished(c.Request.Context(), c.Param("projectId"), userID, *req.IsPublished)
	if err != nil {
		h.fail(c, err, "Project not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

func (h *Handler) delete(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), c.Param("projectId"), userID); err != nil {
		h.fail(c, err, "Project not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

func (h *Handler) listPublished(c *gin.Context) {
	items, err := h.projects.ListPublished(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Project not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": items})
}

func (h *Handler) timelineView(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	view, err := h.timeline.View(c.Request.Context(), c.Param("projectId"), userID)
	if err != nil {
		h.fail(c, err, "Project not found")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) credits(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	balance, err := h.projects.Balance(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": balance})
}
