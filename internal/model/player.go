package model

import "time"

// Player is a room occupant, identified by its connection
type Player struct {
	ConnID      ConnID
	DisplayName string
	Score       int

	// Per-round flags, cleared at the start of every round
	HasGuessedCorrectly bool
	IsEliminated        bool

	JoinedAt time.Time
}

// NewPlayer creates a player with a zero score
func NewPlayer(conn ConnID, displayName string, now time.Time) *Player {
	return &Player{
		ConnID:      conn,
		DisplayName: displayName,
		JoinedAt:    now,
	}
}

// ResetRound clears the per-round flags
func (p *Player) ResetRound() {
	p.HasGuessedCorrectly = false
	p.IsEliminated = false
}

// ResetGame clears the score and per-round flags
func (p *Player) ResetGame() {
	p.Score = 0
	p.ResetRound()
}

// CanGuess reports whether the player is still in play this round
func (p *Player) CanGuess() bool {
	return !p.HasGuessedCorrectly && !p.IsEliminated
}
