// Package events implements the per-session live update broadcaster. The
// engine publishes after successful commits and rolls; SSE handlers
// subscribe. Subscribers never become writers: a dropped or lagging client
// reconciles by re-reading the logs with its last cursor.
package events

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"wayfarer/internal/domain/models"
)

// subscriberBuffer bounds the per-client queue. A subscriber that stays this
// far behind has its events dropped; the cursors in later events let it
// reconcile over HTTP.
const subscriberBuffer = 16

type subscriber struct {
	id string
	ch chan models.UpdateEvent
}

// Bus fans session update events out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*subscriber // slug -> id -> subscriber
	logger *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[string]map[string]*subscriber),
		logger: logger,
	}
}

// Subscribe registers a listener for one session. The returned cancel
// function releases the subscription and closes the channel.
func (b *Bus) Subscribe(slug string) (<-chan models.UpdateEvent, func()) {
	sub := &subscriber{
		id: uuid.New().String(),
		ch: make(chan models.UpdateEvent, subscriberBuffer),
	}

	b.mu.Lock()
	if b.subs[slug] == nil {
		b.subs[slug] = make(map[string]*subscriber)
	}
	b.subs[slug][sub.id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sessionSubs, ok := b.subs[slug]; ok {
			if _, ok := sessionSubs[sub.id]; ok {
				delete(sessionSubs, sub.id)
				close(sub.ch)
			}
			if len(sessionSubs) == 0 {
				delete(b.subs, slug)
			}
		}
	}
	return sub.ch, cancel
}

// Publish delivers the event to every subscriber of the session. Events are
// published in commit order by the single writer holding the session lock,
// so per-subscriber ordering follows write ordering. Full buffers drop the
// event for that subscriber rather than blocking the committer.
func (b *Bus) Publish(slug string, event models.UpdateEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[slug] {
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("dropping update for slow subscriber",
				"slug", slug,
				"subscriber", sub.id,
			)
		}
	}
}

// SubscriberCount reports the current listener count for a session.
func (b *Bus) SubscriberCount(slug string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[slug])
}
