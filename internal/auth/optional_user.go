package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderIdentity trusts X-User-Id (plus X-User-Email / X-User-Name) as the
// caller's Firebase UID. Requests without the header stay anonymous.
// Use this ONLY for development/testing: nothing is verified.
func HeaderIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid != "" {
			c.Set(CtxFirebaseUID, uid)
			c.Set(CtxEmail, strings.TrimSpace(c.GetHeader("X-User-Email")))
			c.Set(CtxDisplayName, strings.TrimSpace(c.GetHeader("X-User-Name")))
		}
		c.Next()
	}
}
