// Package broadcast fans out new-code events to live subscribers.
//
// Subscribers are modelled as an explicit registry of buffered message
// channels. Delivery to one subscriber is independent of all others: a
// subscriber whose buffer stays full past the send timeout is dropped, never
// allowed to stall the checkout path that triggered the broadcast.
package broadcast

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is a notification pushed to subscribers. The only event the core
// emits is "new discount code issued".
type Event struct {
	Code string
}

// Subscriber is a handle to one live subscription.
type Subscriber struct {
	id     uint64
	ch     chan Event
	done   chan struct{}
	cancel sync.Once
}

// Events returns the channel on which the subscriber receives broadcasts.
func (s *Subscriber) Events() <-chan Event { return s.ch }

// Done is closed when the subscriber has been removed from the hub, either
// by Unsubscribe or after a failed delivery.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Hub maintains the set of live subscribers.
type Hub struct {
	lg          *zap.Logger
	buffer      int
	sendTimeout time.Duration

	mu     sync.Mutex
	subs   map[uint64]*Subscriber
	nextID uint64
}

// NewHub creates a Hub. buffer is the per-subscriber channel capacity;
// sendTimeout bounds delivery to a subscriber whose buffer is full.
func NewHub(lg *zap.Logger, buffer int, sendTimeout time.Duration) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		lg:          lg,
		buffer:      buffer,
		sendTimeout: sendTimeout,
		subs:        make(map[uint64]*Subscriber),
	}
}

// Subscribe registers a new subscriber. It receives every event broadcast
// after registration; events are never replayed.
func (h *Hub) Subscribe() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := &Subscriber{
		id:   h.nextID,
		ch:   make(chan Event, h.buffer),
		done: make(chan struct{}),
	}
	h.subs[s.id] = s
	return s
}

// Unsubscribe removes the subscriber from the hub and closes its Done
// channel. It is idempotent: removing a subscriber that already left (or was
// dropped after a failed delivery) is not an error.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	delete(h.subs, s.id)
	h.mu.Unlock()
	s.cancel.Do(func() { close(s.done) })
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast delivers ev to every currently registered subscriber and returns
// without blocking. Subscribers with buffer room get the event immediately;
// the rest get a bounded asynchronous retry and are dropped on timeout.
// Subscribers that join mid-broadcast do not receive the in-flight event.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
			go h.deliverSlow(s, ev)
		}
	}
}

// Shutdown removes and releases every subscriber. Used on graceful shutdown
// so long-lived connections unwind before the server stops.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.subs = make(map[uint64]*Subscriber)
	h.mu.Unlock()

	for _, s := range subs {
		s.cancel.Do(func() { close(s.done) })
	}
}

func (h *Hub) deliverSlow(s *Subscriber, ev Event) {
	t := time.NewTimer(h.sendTimeout)
	defer t.Stop()
	select {
	case s.ch <- ev:
	case <-s.done:
	case <-t.C:
		h.lg.Warn("subscriber stalled, dropping",
			zap.Uint64("subscriber_id", s.id),
			zap.Duration("send_timeout", h.sendTimeout),
		)
		h.Unsubscribe(s)
	}
}
