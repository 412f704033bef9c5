package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mcoot/geoduel/internal/model"
)

// Envelope is the frame format in both directions
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub tracks the live websocket clients and delivers engine events to them
type Hub struct {
	clients map[model.ConnID]*Client
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[model.ConnID]*Client),
		logger:  logger.With(slog.String("component", "ws")),
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client connected",
		slog.String("conn", string(c.id)),
		slog.Int("total_clients", count))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client disconnected",
		slog.String("conn", string(c.id)),
		slog.Int("total_clients", count))
}

// Send queues an event for one connection. Events for unknown connections
// are dropped, as are events for a client whose buffer is full.
func (h *Hub) Send(conn model.ConnID, eventType model.EventType, payload any) {
	data, err := encode(string(eventType), payload)
	if err != nil {
		h.logger.Error("failed to encode event",
			slog.String("type", string(eventType)),
			slog.String("error", err.Error()))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn("ws message dropped - client buffer full",
			slog.String("conn", string(conn)),
			slog.String("type", string(eventType)))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		_ = c.conn.Close()
	}
}

func encode(eventType string, payload any) ([]byte, error) {
	env := Envelope{Type: eventType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
