// Package ws serves the CircuitFlow canvas to browser clients over a
// websocket. Every service event is broadcast to all connected clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Message types on the wire.
const (
	TypeEvent    = "event"
	TypeState    = "state"
	TypeError    = "error"
	TypeDispatch = "dispatch"
	TypeRun      = "run"
	TypeStop     = "stop"
	TypeChat     = "chat"
)

// EventMsg is the broadcast form of a service event.
type EventMsg struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Hub fans service events out to every connected client. It implements
// service.EventEmitter.
type Hub struct {
	mu      sync.Mutex
	clients map[uint64]chan []byte
	nextID  uint64
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[uint64]chan []byte), logger: logger}
}

// Emit broadcasts an event. Clients whose queue is full miss the event
// rather than stall the emitting service.
func (h *Hub) Emit(_ context.Context, event string, data any) {
	b, err := json.Marshal(EventMsg{Type: TypeEvent, Event: event, Data: data})
	if err != nil {
		h.logger.Error("marshal event", "event", event, "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, out := range h.clients {
		select {
		case out <- b:
		default:
			h.logger.Warn("client queue full, dropping event", "client", id, "event", event)
		}
	}
}

// register adds a client queue and returns its id.
func (h *Hub) register(out chan []byte) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.clients[h.nextID] = out
	return h.nextID
}

func (h *Hub) unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
