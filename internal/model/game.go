package model

import "time"

// Phase is the state of a room's game session
type Phase string

const (
	PhaseLobby         Phase = "lobby"          // Waiting for the host to start
	PhaseActive        Phase = "active"         // A round is open for guesses
	PhaseRoundResolved Phase = "round_resolved" // Result shown, follow-up pending
	PhaseGameOver      Phase = "game_over"      // Final result, rematch voting open
)

// DefaultTotalRounds is the number of rounds in a game unless configured
const DefaultTotalRounds = 5

// GameState is the session state embedded in a room
type GameState struct {
	Phase Phase

	// Generation increments every time a game starts, so follow-ups
	// scheduled by an earlier game can recognise themselves as stale
	Generation int

	Round       int // 1-based; 0 before the first round
	TotalRounds int
	Region      Region

	Current  *Entity
	Previous *Entity

	Started       bool
	RoundResolved bool

	// Set once the game is over
	Winners []ConnID
	Draw    bool

	StartedAt time.Time
}

// NewGameState returns a session in the lobby phase
func NewGameState(region Region, totalRounds int) *GameState {
	g := &GameState{Region: region, TotalRounds: totalRounds}
	g.Reset()
	return g
}

// Reset re-initialises every field except the game settings and generation
func (g *GameState) Reset() {
	if g.TotalRounds <= 0 {
		g.TotalRounds = DefaultTotalRounds
	}
	g.Phase = PhaseLobby
	g.Round = 0
	g.Current = nil
	g.Previous = nil
	g.Started = false
	g.RoundResolved = false
	g.Winners = nil
	g.Draw = false
	g.StartedAt = time.Time{}
}

// InPlay reports whether a game is running (a round is open or just resolved)
func (g *GameState) InPlay() bool {
	return g.Phase == PhaseActive || g.Phase == PhaseRoundResolved
}

// IsFinalRound reports whether the current round is the last one
func (g *GameState) IsFinalRound() bool {
	return g.Round >= g.TotalRounds
}

// GameSummary is the record kept for a finished game
type GameSummary struct {
	Code        RoomCode
	Generation  int
	Region      Region
	Rounds      int
	Scores      []ScoreEntry
	Winners     []ConnID
	Draw        bool
	CompletedAt time.Time
}
