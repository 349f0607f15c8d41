package service

import (
	"context"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// ProjectStore reads and manages project rows. Every owner-scoped lookup
// reports ErrNotFound for projects that exist but belong to someone else.
type ProjectStore interface {
	Create(ctx context.Context, in domain.CreateProjectInput) (*domain.Project, error)
	GetOwned(ctx context.Context, projectID, userID string) (*domain.Project, error)
	GetPublished(ctx context.Context, projectID string) (*domain.Project, error)
	ListOwned(ctx context.Context, userID string) ([]domain.Project, error)
	ListPublished(ctx context.Context) ([]domain.PublishedProject, error)
	SetPublished(ctx context.Context, projectID, userID string, published bool) (*domain.Project, error)
	Delete(ctx context.Context, projectID, userID string) (bool, error)
}

// VersionLedger appends versions and moves the current pointer. Commit and
// Activate change the version and the pointer together or not at all.
type VersionLedger interface {
	Commit(ctx context.Context, in domain.CommitVersionInput) (*domain.Version, error)
	Activate(ctx context.Context, projectID, versionID string) (*domain.Version, error)
	Get(ctx context.Context, projectID, versionID string) (*domain.Version, error)
	List(ctx context.Context, projectID string) ([]domain.Version, error)
}

type ConversationLog interface {
	Append(ctx context.Context, projectID string, role domain.Role, content string) (*domain.ConversationEntry, error)
	List(ctx context.Context, projectID string) ([]domain.ConversationEntry, error)
}

// CreditLedger charges revision runs and refunds them at most once.
type CreditLedger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Charge(ctx context.Context, userID, projectID string, amount int) (*domain.RevisionRun, error)
	Refund(ctx context.Context, runID, reason string) (bool, error)
}

// Publisher receives every ledger append for live subscribers.
type Publisher interface {
	Publish(ctx context.Context, projectID string, item domain.TimelineItem) error
}

// Stores bundles the ledger backends shared by the services.
type Stores struct {
	Projects     ProjectStore
	Versions     VersionLedger
	Conversation ConversationLog
	Credits      CreditLedger
}
