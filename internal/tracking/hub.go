// Package tracking fans order status events out to live subscribers.
package tracking

import (
	"sync"

	"github.com/google/uuid"

	"wingo-backend/internal/metrics"
	"wingo-backend/internal/models"
)

// subscriberBuffer bounds how far a slow subscriber may lag before events
// are dropped for it.
const subscriberBuffer = 16

type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[chan models.OrderStatusEvent]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[chan models.OrderStatusEvent]struct{})}
}

// Subscribe registers for events on orderID. The returned function must be
// called to release the subscription; it closes the channel.
func (h *Hub) Subscribe(orderID uuid.UUID) (<-chan models.OrderStatusEvent, func()) {
	ch := make(chan models.OrderStatusEvent, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if h.subs[orderID] == nil {
		h.subs[orderID] = make(map[chan models.OrderStatusEvent]struct{})
	}
	h.subs[orderID][ch] = struct{}{}
	h.mu.Unlock()
	metrics.TrackingSubscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.remove(orderID, ch) })
	}
}

func (h *Hub) remove(orderID uuid.UUID, ch chan models.OrderStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[orderID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(h.subs, orderID)
	}
	close(ch)
	metrics.TrackingSubscribers.Dec()
}

// Publish delivers the event to every subscriber of its order without
// blocking; subscribers whose buffer is full miss the event.
func (h *Hub) Publish(event models.OrderStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[event.OrderID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions for orderID
func (h *Hub) Subscribers(orderID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[orderID])
}

// Close ends every subscription. Later Subscribe calls get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for orderID, set := range h.subs {
		for ch := range set {
			close(ch)
			metrics.TrackingSubscribers.Dec()
		}
		delete(h.subs, orderID)
	}
}
