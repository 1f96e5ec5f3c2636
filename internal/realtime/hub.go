package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/stwalsh4118/estatedesk/internal/metrics"
	"github.com/stwalsh4118/estatedesk/internal/models"
)

// DefaultBufferSize is the per-subscriber queue length.
const DefaultBufferSize = 16

// Predicate selects the events a subscriber wants. A nil predicate matches all.
type Predicate func(models.ChangeEvent) bool

// ForTables matches events on any of the given tables. No tables matches all.
func ForTables(tables ...string) Predicate {
	if len(tables) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		set[t] = struct{}{}
	}
	return func(ev models.ChangeEvent) bool {
		_, ok := set[ev.Table]
		return ok
	}
}

// Hub fans change events out to subscribers. Publish never blocks: when a
// subscriber's queue is full the event is dropped for that subscriber, since
// the queued notification already tells it to refetch.
type Hub struct {
	mu         sync.RWMutex
	subs       map[uint64]*Subscription
	nextID     uint64
	closed     bool
	bufferSize int
	dropped    atomic.Uint64
	metrics    *metrics.Metrics
}

// NewHub creates a hub. A non-positive bufferSize uses DefaultBufferSize.
// m may be nil.
func NewHub(bufferSize int, m *metrics.Metrics) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Hub{
		subs:       make(map[uint64]*Subscription),
		bufferSize: bufferSize,
		metrics:    m,
	}
}

// Subscription is one registered consumer.
type Subscription struct {
	id        uint64
	hub       *Hub
	ch        chan models.ChangeEvent
	predicate Predicate
}

// Subscribe registers a consumer. Subscribing to a closed hub returns a
// subscription whose channel is already closed.
func (h *Hub) Subscribe(predicate Predicate) *Subscription {
	sub := &Subscription{
		hub:       h,
		ch:        make(chan models.ChangeEvent, h.bufferSize),
		predicate: predicate,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	h.metrics.SubscriberDelta(1)
	return sub
}

// Events returns the channel events are delivered on. It is closed when the
// subscription or the hub is closed.
func (s *Subscription) Events() <-chan models.ChangeEvent {
	return s.ch
}

// Close unsubscribes. Safe to call more than once and after Hub.Close.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.id]; !ok {
		return
	}
	delete(h.subs, s.id)
	close(s.ch)
	h.metrics.SubscriberDelta(-1)
}

// Publish delivers ev to every matching subscriber and returns how many
// received it.
func (h *Hub) Publish(ev models.ChangeEvent) int {
	h.metrics.ObserveChange(ev.Table)

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.subs {
		if sub.predicate != nil && !sub.predicate(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
			delivered++
		default:
			h.dropped.Add(1)
		}
	}
	return delivered
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a queue was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close closes every subscription. Later Subscribe calls get closed channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
		h.metrics.SubscriberDelta(-1)
	}
}
