package events

import (
	"strconv"
	"sync"

	"campuspass/internal/domain"
)

// subscriberBuffer bounds the per-subscriber channel. Snapshot consumers
// coalesce on their side, so a small buffer is enough; overflow drops the
// event instead of blocking the publisher.
const subscriberBuffer = 16

// Hub is an in-process implementation of domain.EventHub: a mutex-guarded
// registry of subscriber channels with non-blocking delivery.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]chan domain.Event
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]chan domain.Event)}
}

// Subscribe registers a new listener and returns its subscription.
func (h *Hub) Subscribe() *domain.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := strconv.Itoa(h.nextID)
	ch := make(chan domain.Event, subscriberBuffer)
	h.subs[id] = ch
	return &domain.Subscription{ID: id, C: ch}
}

// Unsubscribe removes the listener and closes its channel. Unsubscribing
// twice, or with a subscription from another hub, is a no-op.
func (h *Hub) Unsubscribe(sub *domain.Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.subs[sub.ID]
	if !ok {
		return
	}
	delete(h.subs, sub.ID)
	close(ch)
}

// Publish delivers the event to every subscriber without blocking. A full
// subscriber channel drops the event.
func (h *Hub) Publish(e domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
