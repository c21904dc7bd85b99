package hub

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atikulmunna/vislog/internal/metrics"
	"github.com/atikulmunna/vislog/internal/model"
)

const (
	inputBuffer      = 256
	subscriberBuffer = 64
)

// Hub receives store change events and broadcasts them to all subscribers.
type Hub struct {
	log         *zap.Logger
	input       chan model.Event
	mu          sync.RWMutex
	subscribers map[chan model.Event]struct{}
	dropped     int64
	closed      bool
}

// New creates a Hub.
func New(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:         log,
		input:       make(chan model.Event, inputBuffer),
		subscribers: make(map[chan model.Event]struct{}),
	}
}

// Publish queues an event for broadcast. It never blocks; when the input
// queue is full the event is dropped.
func (h *Hub) Publish(ev model.Event) {
	select {
	case h.input <- ev:
	default:
		h.drop()
	}
}

// Subscribe returns a buffered channel that receives every published event.
func (h *Hub) Subscribe() <-chan model.Event {
	ch := make(chan model.Event, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (h *Hub) Unsubscribe(sub <-chan model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		if ch == sub {
			delete(h.subscribers, ch)
			close(ch)
			return
		}
	}
}

// Dropped returns the total number of events dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Start broadcasts published events until the context is cancelled.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.input:
			h.broadcast(ev)
		}
	}
}

// broadcast sends an event to all subscribers.
// If a subscriber's channel is full, the event is dropped for that subscriber.
func (h *Hub) broadcast(ev model.Event) {
	h.mu.RLock()
	var slow int
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			slow++
		}
	}
	h.mu.RUnlock()

	for i := 0; i < slow; i++ {
		h.drop()
	}
}

func (h *Hub) drop() {
	h.mu.Lock()
	h.dropped++
	total := h.dropped
	h.mu.Unlock()

	metrics.HubDropped.Inc()
	h.log.Warn("hub: dropped event for slow consumer", zap.Int64("total_dropped", total))
}

// closeAll closes all subscriber channels.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = make(map[chan model.Event]struct{})
	h.closed = true
}
