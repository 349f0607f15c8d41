package http

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
	"github.com/roshanmishra15/site-builder/internal/projects/service"
)

// Subscriber streams a project's timeline items as they are appended.
type Subscriber interface {
	Subscribe(ctx context.Context, projectID string) (<-chan domain.TimelineItem, error)
}

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	projects  *service.ProjectService
	revisions *service.RevisionService
	ledger    *service.LedgerService
	timeline  *service.TimelineProjector
	events    Subscriber
	logger    *zap.Logger

	keepAlive time.Duration
}

type Deps struct {
	Projects  *service.ProjectService
	Revisions *service.RevisionService
	Ledger    *service.LedgerService
	Timeline  *service.TimelineProjector
	Events    Subscriber
	Logger    *zap.Logger
}

func New(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		projects:  d.Projects,
		revisions: d.Revisions,
		ledger:    d.Ledger,
		timeline:  d.Timeline,
		events:    d.Events,
		logger:    logger,
		keepAlive: 15 * time.Second,
	}
}
