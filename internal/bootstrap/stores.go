package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/config"
	"github.com/roshanmishra15/site-builder/internal/auth"
	authservice "github.com/roshanmishra15/site-builder/internal/auth/service"
	"github.com/roshanmishra15/site-builder/internal/events"
	"github.com/roshanmishra15/site-builder/internal/lock"
	"github.com/roshanmishra15/site-builder/internal/projects/audit"
	"github.com/roshanmishra15/site-builder/internal/projects/memory"
	"github.com/roshanmishra15/site-builder/internal/projects/repository"
	"github.com/roshanmishra15/site-builder/internal/projects/service"
	"github.com/roshanmishra15/site-builder/internal/storage/postgres"
	"github.com/roshanmishra15/site-builder/internal/users"
)

// Backend is everything the services need from storage and coordination.
type Backend struct {
	Stores service.Stores
	Users  auth.UserResolver
	Runs   audit.RunSource
	Locker lock.Locker
	Events events.Broker

	// Profiles is the same user table as Users, with read and edit access.
	Profiles authservice.UserStore

	SQL   *sql.DB
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// Close releases every open connection.
func (b *Backend) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
	if b.SQL != nil {
		_ = b.SQL.Close()
	}
}

// OpenBackend wires the store selected by cfg.App.Store. Redis, when
// configured, replaces the in-process project lock and event broker so that
// several API instances share them.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	b := &Backend{}

	switch cfg.App.Store {
	case config.StoreMemory:
		store := memory.NewStore(cfg.Billing.DefaultCredits)
		b.Stores = service.Stores{
			Projects:     store.Projects(),
			Versions:     store.Versions(),
			Conversation: store.Conversations(),
			Credits:      store.Credits(),
		}
		b.Users = store.Users()
		b.Profiles = store.Users()
		b.Runs = store.Credits()

	case config.StorePostgres:
		db, err := postgres.NewConnection(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		b.SQL = db

		pool, err := OpenDB(ctx, DBOptions{
			DSN:      postgres.DSN(&cfg.Database),
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Pool = pool

		credits := repository.NewCreditRepository(db)
		b.Stores = service.Stores{
			Projects:     repository.NewProjectRepository(db),
			Versions:     repository.NewVersionRepository(db),
			Conversation: repository.NewConversationRepository(db),
			Credits:      credits,
		}
		userRepo := users.NewRepo(pool, cfg.Billing.DefaultCredits)
		b.Users = userRepo
		b.Profiles = userRepo
		b.Runs = credits

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.App.Store)
	}

	if cfg.Redis.Addr == "" {
		b.Locker = lock.NewLocal()
		b.Events = events.NewLocal()
		return b, nil
	}

	client, err := OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Redis = client
	b.Locker = lock.NewRedis(client, cfg.Limits.LockTTL, logger)
	b.Events = events.NewRedis(client, logger)
	return b, nil
}
