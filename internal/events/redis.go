package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// Redis relays events through Redis pub/sub so every API instance sees
// appends made by any other.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedis(client *redis.Client, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, logger: logger}
}

func (r *Redis) Publish(ctx context.Context, projectID string, item domain.TimelineItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, Channel(projectID), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, projectID string) (<-chan domain.TimelineItem, error) {
	sub := r.client.Subscribe(ctx, Channel(projectID))
	// Wait for the subscription confirmation so no publish after return is lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Channel(projectID), err)
	}

	out := make(chan domain.TimelineItem, subscriberBuffer)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var item domain.TimelineItem
				if err := json.Unmarshal([]byte(msg.Payload), &item); err != nil {
					r.logger.Warn("dropping malformed event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- item:
				default:
				}
			}
		}
	}()
	return out, nil
}
