package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/internal/logging"
	"github.com/roshanmishra15/site-builder/internal/users"
)

// UserResolver maps a Firebase identity to a database user id.
type UserResolver interface {
	EnsureUser(ctx context.Context, u users.UpsertUser) (string, error)
}

// WithUser requires an identity set by an earlier middleware and resolves it
// to a database user. Anonymous requests get 401.
func WithUser(resolver UserResolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fuid := UserFirebaseUID(c)
		if fuid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		uid, err := resolver.EnsureUser(c.Request.Context(), users.UpsertUser{
			FirebaseUID: fuid,
			Email:       c.GetString(CtxEmail),
			DisplayName: c.GetString(CtxDisplayName),
		})
		if err != nil {
			logging.FromContext(c.Request.Context(), logger).Error("ensure user", zap.String("firebase_uid", fuid), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}

		c.Set(CtxUserDBID, uid)
		c.Next()
	}
}
