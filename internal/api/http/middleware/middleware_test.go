package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roshanmishra15/site-builder/internal/auth"
	"github.com/roshanmishra15/site-builder/internal/logging"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	var seen string
	r := gin.New()
	r.Use(RequestIDMiddleware(zap.New(core)))
	r.GET("/", func(c *gin.Context) {
		seen = GetRequestID(c.Request.Context())
		logging.FromContext(c.Request.Context(), nil).Info("handler")
		c.Status(http.StatusNoContent)
	})

	t.Run("keeps incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))
		assert.Equal(t, "abc-123", seen)

		inner := logs.FilterMessage("handler").All()
		if assert.Len(t, inner, 1) {
			assert.Equal(t, "abc-123", inner[0].ContextMap()["request_id"])
		}
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		rid := w.Header().Get("X-Request-Id")
		assert.Len(t, rid, 32)
		assert.Equal(t, rid, seen)
	})

	entries := logs.FilterMessage("request").All()
	if assert.Len(t, entries, 2) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "abc-123", fields["request_id"])
		assert.Equal(t, int64(http.StatusNoContent), fields["status"])
	}
}

func TestUserRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := NewUserRateLimiter(2)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-User"); id != "" {
			c.Set(auth.CtxUserDBID, id)
		}
		c.Next()
	})
	r.POST("/revise", limiter.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	hit := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/revise", nil)
		if user != "" {
			req.Header.Set("X-User", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("ada"))
	assert.Equal(t, http.StatusOK, hit("ada"))
	assert.Equal(t, http.StatusTooManyRequests, hit("ada"))

	// Buckets are per user.
	assert.Equal(t, http.StatusOK, hit("eve"))

	assert.Equal(t, http.StatusOK, hit(""))
	assert.Equal(t, http.StatusOK, hit(""))
	assert.Equal(t, http.StatusTooManyRequests, hit(""))
}

func TestUserRateLimiter_SweepsIdleBuckets(t *testing.T) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewUserRateLimiter(2)
	limiter.now = func() time.Time { return clock }
	limiter.lastSweep = clock

	assert.True(t, limiter.allow("ada"))
	assert.True(t, limiter.allow("eve"))
	assert.Len(t, limiter.visitors, 2)

	clock = clock.Add(5 * time.Minute)
	assert.True(t, limiter.allow("eve"))

	clock = clock.Add(defaultIdleTTL)
	assert.True(t, limiter.allow("bob"))
	assert.NotContains(t, limiter.visitors, "ada")
	assert.NotContains(t, limiter.visitors, "eve")
	assert.Contains(t, limiter.visitors, "bob")

	// Sweeps run at most once per idleTTL.
	clock = clock.Add(time.Minute)
	assert.True(t, limiter.allow("ada"))
	assert.Len(t, limiter.visitors, 2)
}
