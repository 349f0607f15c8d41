package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/roshanmishra15/site-builder/internal/api/http"
	"github.com/roshanmishra15/site-builder/internal/api/http/middleware"
	"github.com/roshanmishra15/site-builder/internal/auth"
	authhttp "github.com/roshanmishra15/site-builder/internal/auth/http"
	projecthttp "github.com/roshanmishra15/site-builder/internal/projects/http"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	TrustedOrigins []string
	Logger         *zap.Logger

	// Identity sets the caller's Firebase identity, if any
	// (FirebaseAuthMiddleware or HeaderIdentity).
	Identity gin.HandlerFunc
	Users    auth.UserResolver

	Projects *projecthttp.Handler
	Profiles *authhttp.Handler
	// RevisionsPerMinute caps revision submissions per user; 0 disables it.
	RevisionsPerMinute int
	HealthChecks       map[string]httpapi.Pinger
}

func BuildRouter(dep RouterDeps) (*gin.Engine, error) {
	if err := projecthttp.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.TrustedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.HealthChecks)
	healthHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if dep.Identity != nil {
		api.Use(dep.Identity)
	}
	private := api.Group("", auth.WithUser(dep.Users, dep.Logger))

	var limit gin.HandlerFunc
	if dep.RevisionsPerMinute > 0 {
		limit = middleware.NewUserRateLimiter(dep.RevisionsPerMinute).Middleware()
	}

	dep.Projects.Register(api.Group("/project"), private.Group("/project"), limit)
	userGroup := private.Group("/user")
	dep.Projects.RegisterUser(userGroup)
	if dep.Profiles != nil {
		dep.Profiles.Register(userGroup)
	}

	return r, nil
}
