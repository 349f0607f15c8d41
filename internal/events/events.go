// Package events fans timeline items out to live subscribers of a project.
package events

import (
	"context"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// Broker publishes timeline items per project. Delivery is best-effort:
// subscribers that fall behind drop items rather than stall publishers.
type Broker interface {
	Publish(ctx context.Context, projectID string, item domain.TimelineItem) error
	// Subscribe returns a channel that is closed once ctx is done.
	Subscribe(ctx context.Context, projectID string) (<-chan domain.TimelineItem, error)
}

// Channel is the pub/sub channel for a project's events.
func Channel(projectID string) string {
	return "site:events:" + projectID
}

const subscriberBuffer = 32
