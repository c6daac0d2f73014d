package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"shanyrakkit/core"
)

// Hub fans ledger events out to subscriber channels. Slow subscribers lose
// events rather than stall the broadcaster.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan core.Event
	nextID int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan core.Event)}
}

// Subscribe registers a buffered event channel and returns its id.
func (h *Hub) Subscribe(buffer int) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan core.Event, buffer)
	h.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes the channel registered under id.
func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribers reports how many channels are currently registered.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers ev to every subscriber with room in its buffer.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	targets := make([]chan core.Event, 0, len(h.subs))
	for _, ch := range h.subs {
		targets = append(targets, ch)
	}
	h.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- ev:
		default:
		}
	}
}

// MarshalJSON converts an event to JSON bytes for WebSocket delivery.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
