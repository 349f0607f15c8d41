package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/internal/logging"
	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// notifier forwards ledger appends to live subscribers. Publishing never
// fails the operation that produced the item.
type notifier struct {
	pub    Publisher
	logger *zap.Logger
}

func (n notifier) emit(ctx context.Context, projectID string, item domain.TimelineItem) {
	if n.pub == nil {
		return
	}
	if err := n.pub.Publish(ctx, projectID, item); err != nil {
		logging.FromContext(ctx, n.logger).Warn("publish timeline event",
			zap.String("project_id", projectID),
			zap.String("kind", string(item.Kind)),
			zap.Error(err),
		)
	}
}

// say appends an entry to the conversation and publishes it.
func say(ctx context.Context, log ConversationLog, n notifier, projectID string, role domain.Role, content string) error {
	e, err := log.Append(ctx, projectID, role, content)
	if err != nil {
		return err
	}
	n.emit(ctx, projectID, domain.ConversationItem(*e))
	return nil
}
