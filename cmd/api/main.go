package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/config"
	httpapi "github.com/roshanmishra15/site-builder/internal/api/http"
	"github.com/roshanmishra15/site-builder/internal/auth"
	authhttp "github.com/roshanmishra15/site-builder/internal/auth/http"
	authmw "github.com/roshanmishra15/site-builder/internal/auth/middleware"
	authservice "github.com/roshanmishra15/site-builder/internal/auth/service"
	"github.com/roshanmishra15/site-builder/internal/bootstrap"
	"github.com/roshanmishra15/site-builder/internal/llm"
	"github.com/roshanmishra15/site-builder/internal/logging"
	"github.com/roshanmishra15/site-builder/internal/projects/audit"
	projecthttp "github.com/roshanmishra15/site-builder/internal/projects/http"
	"github.com/roshanmishra15/site-builder/internal/projects/service"
)

const serviceName = "site-builder"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap.SetGinMode(cfg.App.Environment)

	backend, err := bootstrap.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	client, err := llm.New(&cfg.LLM)
	if err != nil {
		return err
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, using offline echo model")
	}

	identity, err := identityMiddleware(ctx, cfg, logger)
	if err != nil {
		return err
	}

	stores := backend.Stores
	handler := projecthttp.New(projecthttp.Deps{
		Projects:  service.NewProjectService(stores, backend.Locker),
		Revisions: service.NewRevisionService(stores, client, backend.Locker, backend.Events, cfg.Billing.RevisionCost, logger),
		Ledger:    service.NewLedgerService(stores, backend.Locker, backend.Events, logger),
		Timeline:  service.NewTimelineProjector(stores),
		Events:    backend.Events,
		Logger:    logger,
	})

	checks := map[string]httpapi.Pinger{"db": nil, "redis": nil}
	if backend.Pool != nil {
		checks["db"] = backend.Pool
	}
	if backend.Redis != nil {
		checks["redis"] = bootstrap.RedisPinger{Client: backend.Redis}
	}

	router, err := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:        serviceName,
		Version:            cfg.App.Version,
		TrustedOrigins:     cfg.Server.TrustedOrigins,
		Logger:             logger,
		Identity:           identity,
		Users:              backend.Users,
		Projects:           handler,
		Profiles:           authhttp.New(authservice.NewProfileService(backend.Profiles), logger),
		RevisionsPerMinute: cfg.Limits.RevisionsPerMinute,
		HealthChecks:       checks,
	})
	if err != nil {
		return err
	}

	auditor := audit.NewAuditor(backend.Runs, cfg.Audit.StaleAfter, logger)
	scheduler := audit.NewScheduler(auditor, cfg.Audit.Schedule, logger)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.App.Store),
			zap.Bool("redis", backend.Redis != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// identityMiddleware verifies Firebase ID tokens when credentials are
// configured. Header identity is a development fallback only.
func identityMiddleware(ctx context.Context, cfg *config.Config, logger *zap.Logger) (gin.HandlerFunc, error) {
	if cfg.Firebase.CredentialsPath != "" {
		client, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			return nil, err
		}
		return authmw.FirebaseAuthMiddleware(client), nil
	}
	if cfg.App.AllowHeaderAuth {
		logger.Warn("AUTH_ALLOW_HEADER enabled: X-User-Id is trusted without verification")
		return auth.HeaderIdentity(), nil
	}
	logger.Warn("no identity provider configured, private routes will answer 401")
	return nil, nil
}
