package events

import (
	"context"
	"sync"

	"github.com/roshanmishra15/site-builder/internal/projects/domain"
)

// Local delivers events within one process.
type Local struct {
	mu   sync.RWMutex
	subs map[string]map[chan domain.TimelineItem]struct{}
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[chan domain.TimelineItem]struct{})}
}

func (l *Local) Publish(_ context.Context, projectID string, item domain.TimelineItem) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for ch := range l.subs[projectID] {
		select {
		case ch <- item:
		default:
		}
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context, projectID string) (<-chan domain.TimelineItem, error) {
	ch := make(chan domain.TimelineItem, subscriberBuffer)

	l.mu.Lock()
	if l.subs[projectID] == nil {
		l.subs[projectID] = make(map[chan domain.TimelineItem]struct{})
	}
	l.subs[projectID][ch] = struct{}{}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.subs[projectID], ch)
		if len(l.subs[projectID]) == 0 {
			delete(l.subs, projectID)
		}
		l.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
