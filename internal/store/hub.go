package store

import "sync"

// Subscription is a live query handle. C receives one signal after any
// transaction that touched one of the subscribed tables commits.
// Signals are coalesced: a slow consumer sees at least one notification
// for any burst of commits, not one per commit. Notifications are
// delivered asynchronously and must not be assumed to fire in lockstep
// with the triggering write.
type Subscription struct {
	C      chan struct{}
	tables map[string]struct{}
	hub    *Hub
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

// Hub fans out post-commit table change notifications to registered
// subscriptions. It never blocks writers: delivery is a non-blocking
// send on a buffered channel.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers interest in the given tables. With no tables the
// subscription fires on every commit.
func (h *Hub) Subscribe(tables ...string) *Subscription {
	sub := &Subscription{
		C:      make(chan struct{}, 1),
		tables: make(map[string]struct{}, len(tables)),
		hub:    h,
	}
	for _, t := range tables {
		sub.tables[t] = struct{}{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.subs[sub] = struct{}{}
	}
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub)
}

// Publish notifies every subscription interested in at least one of the
// changed tables. Called by DB.InTx after a successful commit.
func (h *Hub) Publish(tables ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if !sub.matches(tables) {
			continue
		}
		select {
		case sub.C <- struct{}{}:
		default: // already pending, coalesce
		}
	}
}

func (s *Subscription) matches(tables []string) bool {
	if len(s.tables) == 0 {
		return true
	}
	for _, t := range tables {
		if _, ok := s.tables[t]; ok {
			return true
		}
	}
	return false
}

// Shutdown drops all subscriptions. Further Subscribe calls return
// subscriptions that never fire.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.subs = make(map[*Subscription]struct{})
}
