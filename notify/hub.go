package notify

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultSubscriberBuffer = 16

// Subscription receives events for one recipient. When its buffer
// overflows, further events are dropped and Lagged reports true so the
// client can resynchronise via List.
type Subscription struct {
	RecipientID string

	hub    *Hub
	ch     chan Event
	lagged atomic.Bool
	once   sync.Once
}

// Events returns the receive channel. It is closed on Close or hub shutdown.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Lagged reports whether any event was dropped for this subscriber.
func (s *Subscription) Lagged() bool { return s.lagged.Load() }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub fans events out to in-process subscribers keyed by recipient id.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	dropped atomic.Uint64
	closed  bool
}

// NewHub returns a Hub whose subscriptions buffer up to buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a live subscriber for recipientID.
func (h *Hub) Subscribe(recipientID string) *Subscription {
	s := &Subscription{
		RecipientID: recipientID,
		hub:         h,
		ch:          make(chan Event, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	set, ok := h.subs[recipientID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[recipientID] = set
	}
	set[s] = struct{}{}
	return s
}

// Publish delivers ev to every subscriber of its recipient without blocking.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[ev.Notification.RecipientID] {
		select {
		case s.ch <- ev:
		default:
			s.lagged.Store(true)
			h.dropped.Add(1)
		}
	}
	return nil
}

// Subscribers returns the live subscriber count for recipientID.
func (h *Hub) Subscribers(recipientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[recipientID])
}

// Dropped returns the number of events dropped on full subscriber buffers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	if set, ok := h.subs[s.RecipientID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.RecipientID)
		}
	}
	h.mu.Unlock()
	s.once.Do(func() { close(s.ch) })
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[string]map[*Subscription]struct{})
	h.mu.Unlock()

	for _, set := range subs {
		for s := range set {
			s.once.Do(func() { close(s.ch) })
		}
	}
}
