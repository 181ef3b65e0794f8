package relay

import (
	"sync"
)

// Hub fans a published value out to every registered subscriber.
// Delivery is synchronous and follows registration order.
type Hub[T any] struct {
	mu   sync.Mutex
	subs []*Subscription[T]
	done bool
}

// Subscription is a registered subscriber handle. Detaching it stops
// further deliveries to its callback.
type Subscription[T any] struct {
	hub      *Hub[T]
	fn       func(T)
	detached bool
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{}
}

// Subscribe registers fn and returns its handle. Subscribing to a
// completed hub returns an inert handle that never receives values.
func (h *Hub[T]) Subscribe(fn func(T)) *Subscription[T] {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription[T]{hub: h, fn: fn}
	if h.done {
		sub.detached = true
		return sub
	}
	h.subs = append(h.subs, sub)
	return sub
}

// Publish delivers v to every registered subscriber in registration
// order. Publishing to a completed hub is a no-op.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	subs := make([]*Subscription[T], len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	// Callbacks run outside the lock so they may detach themselves.
	for _, sub := range subs {
		sub.muDo(v)
	}
}

// Complete detaches every subscriber and marks the hub terminal.
// Further Publish and Subscribe calls are no-ops.
func (h *Hub[T]) Complete() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done {
		return
	}
	h.done = true
	for _, sub := range h.subs {
		sub.detached = true
	}
	h.subs = nil
}

// Len returns the number of registered subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Detach removes the subscription from its hub. Idempotent.
func (s *Subscription[T]) Detach() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.detached {
		return
	}
	s.detached = true
	for i, sub := range h.subs {
		if sub == s {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			break
		}
	}
}

// muDo invokes the callback unless the subscription was detached after
// the publish snapshot was taken.
func (s *Subscription[T]) muDo(v T) {
	s.hub.mu.Lock()
	detached := s.detached
	s.hub.mu.Unlock()

	if !detached {
		s.fn(v)
	}
}
