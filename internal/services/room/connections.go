package room

import (
	"time"

	"github.com/mcoot/geoduel/internal/model"
)

// Connections tracks live connection handles and the room each occupies
type Connections struct {
	live  map[model.ConnID]time.Time
	rooms map[model.ConnID]model.RoomCode
}

// NewConnections creates an empty connection registry
func NewConnections() *Connections {
	return &Connections{
		live:  make(map[model.ConnID]time.Time),
		rooms: make(map[model.ConnID]model.RoomCode),
	}
}

// Connect marks conn as live
func (c *Connections) Connect(conn model.ConnID, now time.Time) {
	c.live[conn] = now
}

// Disconnect forgets conn, returning the room it occupied if any
func (c *Connections) Disconnect(conn model.ConnID) (model.RoomCode, bool) {
	code, ok := c.rooms[conn]
	delete(c.live, conn)
	delete(c.rooms, conn)
	return code, ok
}

// IsLive reports whether conn is connected
func (c *Connections) IsLive(conn model.ConnID) bool {
	_, ok := c.live[conn]
	return ok
}

// Assign records that conn occupies code
func (c *Connections) Assign(conn model.ConnID, code model.RoomCode) {
	c.rooms[conn] = code
}

// Release clears conn's room, if it still points at code
func (c *Connections) Release(conn model.ConnID, code model.RoomCode) {
	if c.rooms[conn] == code {
		delete(c.rooms, conn)
	}
}

// RoomOf returns the room conn occupies
func (c *Connections) RoomOf(conn model.ConnID) (model.RoomCode, bool) {
	code, ok := c.rooms[conn]
	return code, ok
}

// Count returns the number of live connections
func (c *Connections) Count() int {
	return len(c.live)
}
