package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/config"
	"github.com/roshanmishra15/site-builder/internal/logging"
	"github.com/roshanmishra15/site-builder/internal/projects/audit"
	"github.com/roshanmishra15/site-builder/internal/projects/repository"
	"github.com/roshanmishra15/site-builder/internal/storage/postgres"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: worker migrate | audit")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("connect", zap.Error(err))
	}
	defer db.Close()

	switch os.Args[1] {
	case "migrate":
		applied, err := postgres.Migrate(ctx, db)
		if err != nil {
			logger.Fatal("migrate", zap.Strings("applied", applied), zap.Error(err))
		}
		logger.Info("migrations applied", zap.Strings("applied", applied))

	case "audit":
		auditor := audit.NewAuditor(repository.NewCreditRepository(db), cfg.Audit.StaleAfter, logger)
		stale, err := auditor.Run(ctx)
		if err != nil {
			logger.Fatal("audit", zap.Error(err))
		}
		logger.Info("audit finished", zap.Int("stale_runs", len(stale)))

	default:
		logger.Fatal("unknown command", zap.String("command", os.Args[1]))
	}
}
