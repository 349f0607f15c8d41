package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/internal/auth"
	"github.com/roshanmishra15/site-builder/internal/logging"
	"github.com/roshanmishra15/site-builder/internal/projects/domain"
	"github.com/roshanmishra15/site-builder/internal/users"
)

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
	default:
		logging.FromContext(c.Request.Context(), h.logger).Error("user request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}

// GetProfile returns the current user's profile and credits
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.profiles.Profile(c.Request.Context(), auth.UserDBID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// SyncUser refreshes the stored profile from the verified identity. The body
// is optional and may override display_name and photo_url.
func (h *Handler) SyncUser(c *gin.Context) {
	var body struct {
		DisplayName string `json:"display_name"`
		PhotoURL    string `json:"photo_url"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON body"})
			return
		}
	}

	in := users.UpsertUser{
		FirebaseUID: auth.UserFirebaseUID(c),
		Email:       c.GetString(auth.CtxEmail),
		DisplayName: c.GetString(auth.CtxDisplayName),
		PhotoURL:    body.PhotoURL,
	}
	if body.DisplayName != "" {
		in.DisplayName = body.DisplayName
	}

	user, err := h.profiles.Sync(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile updates the user's editable profile fields
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req struct {
		DisplayName *string `json:"display_name"`
		PhotoURL    *string `json:"photo_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	user, err := h.profiles.Update(c.Request.Context(), auth.UserDBID(c), users.ProfileUpdate{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
