package model

import "time"

// RoomCode is the short human-enterable identifier players use to join a room
type RoomCode string

// ConnID identifies a live transport connection. A player's identity is its
// connection: once it closes, the player is gone.
type ConnID string

const (
	// MinPlayers is the occupancy needed to start or rematch a game
	MinPlayers = 2
	// MaxPlayersLimit is the largest configurable room size
	MaxPlayersLimit = 8
	// DefaultMaxPlayers is used when a create request leaves the size unset
	DefaultMaxPlayers = 2
)

// ClampMaxPlayers forces a requested room size into the supported range
func ClampMaxPlayers(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxPlayers
	case n < MinPlayers:
		return MinPlayers
	case n > MaxPlayersLimit:
		return MaxPlayersLimit
	}
	return n
}

// Room is an isolated game session with a host and a bounded roster
type Room struct {
	Code       RoomCode
	Host       ConnID
	Players    []*Player // join order
	MaxPlayers int
	Game       *GameState

	// RematchVotes holds the occupants asking for another game once one is over
	RematchVotes map[ConnID]struct{}

	// Admitted counts every occupant ever let in, host included
	Admitted int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRoom creates a room in the lobby phase with host as sole occupant
func NewRoom(code RoomCode, host *Player, region Region, maxPlayers, totalRounds int, now time.Time) *Room {
	return &Room{
		Code:         code,
		Host:         host.ConnID,
		Players:      []*Player{host},
		MaxPlayers:   ClampMaxPlayers(maxPlayers),
		Game:         NewGameState(region, totalRounds),
		RematchVotes: make(map[ConnID]struct{}),
		Admitted:     1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// GetPlayer returns the occupant with the given connection, or nil
func (r *Room) GetPlayer(conn ConnID) *Player {
	for _, p := range r.Players {
		if p.ConnID == conn {
			return p
		}
	}
	return nil
}

// IsHost reports whether conn is the room's host
func (r *Room) IsHost(conn ConnID) bool {
	return r.Host != "" && r.Host == conn
}

// IsFull reports whether the roster has reached MaxPlayers
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// RemovePlayer drops conn from the roster, preserving join order.
// Returns the removed player, or nil if conn was not an occupant.
func (r *Room) RemovePlayer(conn ConnID) *Player {
	for i, p := range r.Players {
		if p.ConnID == conn {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			delete(r.RematchVotes, conn)
			return p
		}
	}
	return nil
}

// Scoreboard lists every occupant in roster order
func (r *Room) Scoreboard() []ScoreEntry {
	board := make([]ScoreEntry, len(r.Players))
	for i, p := range r.Players {
		board[i] = ScoreEntry{
			ID:          p.ConnID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
			IsHost:      r.IsHost(p.ConnID),
			JoinedAt:    p.JoinedAt,
		}
	}
	return board
}

// ConnIDs returns the occupants' connections in roster order
func (r *Room) ConnIDs() []ConnID {
	ids := make([]ConnID, len(r.Players))
	for i, p := range r.Players {
		ids[i] = p.ConnID
	}
	return ids
}

// ScoreEntry is one line of a scoreboard
type ScoreEntry struct {
	ID          ConnID    `json:"id"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	IsHost      bool      `json:"isHost"`
	JoinedAt    time.Time `json:"joinedAt"`
}
