package sse

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mcoot/geoduel/internal/model"
)

// EventRoomClosed is sent to observers just before a room's hub shuts down
const EventRoomClosed = "room-closed"

// HubManager owns one hub per observed room
type HubManager struct {
	hubs   map[model.RoomCode]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.RoomCode]*Hub),
		logger: logger.With(slog.String("component", "sse")),
	}
}

// Attach registers client with the room's hub, creating the hub if needed.
// It holds the manager lock throughout, so CleanupEmptyHubs cannot close the
// hub between creation and registration.
func (m *HubManager) Attach(code model.RoomCode, client *Client) (*Hub, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub, ok := m.hubs[code]
	if !ok {
		hub = NewHub(code, m.logger)
		m.hubs[code] = hub
		go hub.Run()
	}
	return hub, hub.Register(client)
}

// GetHub returns the hub for a room, or nil if nobody is observing it
func (m *HubManager) GetHub(code model.RoomCode) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[code]
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(code model.RoomCode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[code]; ok {
		hub.Close()
		delete(m.hubs, code)
		m.logger.Info("sse hub removed", slog.String("room", string(code)))
	}
}

// CleanupEmptyHubs removes hubs with no clients, returning how many went
func (m *HubManager) CleanupEmptyHubs() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for code, hub := range m.hubs {
		if hub.ClientCount() == 0 {
			hub.Close()
			delete(m.hubs, code)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("sse empty hubs cleaned up", slog.Int("removed", removed))
	}
	return removed
}

// RoomEvent forwards a room-wide engine event to the room's observers
func (m *HubManager) RoomEvent(code model.RoomCode, eventType model.EventType, payload any) {
	hub := m.GetHub(code)
	if hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error("sse failed to encode event",
			slog.String("room", string(code)),
			slog.String("type", string(eventType)),
			slog.String("error", err.Error()))
		return
	}
	hub.BroadcastEvent(string(eventType), string(data))
}

// RoomClosed tells observers the room is gone and drops its hub
func (m *HubManager) RoomClosed(code model.RoomCode) {
	hub := m.GetHub(code)
	if hub == nil {
		return
	}
	data, _ := json.Marshal(map[string]model.RoomCode{"code": code})
	hub.BroadcastEvent(EventRoomClosed, string(data))
	m.RemoveHub(code)
}
