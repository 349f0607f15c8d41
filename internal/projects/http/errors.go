package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/internal/logging"
	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// fail maps a service error to its status and message. notFound names the
// missing resource for 404s. Unknown errors are logged and hidden.
func (h *Handler) fail(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": notFound})
	case errors.Is(err, domain.ErrInsufficientCredits):
		c.JSON(http.StatusForbidden, gin.H{"message": "Add more credits to make changes"})
	case errors.Is(err, domain.ErrGenerationFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Code generation failed"})
	default:
		logging.FromContext(c.Request.Context(), h.logger).Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
	}
}
