package game

import (
	"log/slog"
	"time"

	"github.com/mcoot/geoduel/internal/dependencies/clock"
	"github.com/mcoot/geoduel/internal/model"
)

// FollowUpKind selects what a scheduled follow-up does when it fires
type FollowUpKind int

const (
	FollowUpNextRound FollowUpKind = iota + 1
	FollowUpEndGame
)

func (k FollowUpKind) String() string {
	switch k {
	case FollowUpNextRound:
		return "next-round"
	case FollowUpEndGame:
		return "end-game"
	}
	return "unknown"
}

// FollowUp is a delayed transition scheduled after a round resolves. It
// only applies while the room is still on the same generation and round.
type FollowUp struct {
	Kind       FollowUpKind
	Room       model.RoomCode
	Generation int
	Round      int
	After      time.Duration
}

// Outcome is everything a session transition produced
type Outcome struct {
	Events   []model.Event
	FollowUp *FollowUp
	// Finished is set when the transition ended a game
	Finished *model.GameSummary
}

func (o *Outcome) emit(events ...model.Event) {
	o.Events = append(o.Events, events...)
}

func (o *Outcome) merge(other Outcome) {
	o.Events = append(o.Events, other.Events...)
	if other.FollowUp != nil {
		o.FollowUp = other.FollowUp
	}
	if other.Finished != nil {
		o.Finished = other.Finished
	}
}

// EntityPicker draws the next guessable entity for a region
type EntityPicker interface {
	Pick(region model.Region, previous *model.Entity) (*model.Entity, error)
}

// Config holds session timing
type Config struct {
	// RoundDelay is how long a round result stays up before the next round
	// (or the game-over evaluation) follows
	RoundDelay time.Duration
}

// DefaultConfig returns the default session config
func DefaultConfig() Config {
	return Config{RoundDelay: 5 * time.Second}
}

// Service runs the per-room game state machine:
// Lobby -> Active -> RoundResolved -> (Active | GameOver), GameOver -> Active on rematch
type Service struct {
	picker EntityPicker
	config Config
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a new game session service
func New(picker EntityPicker, config Config, clock clock.Clock, logger *slog.Logger) *Service {
	if config.RoundDelay < 0 {
		config.RoundDelay = 0
	}
	return &Service{
		picker: picker,
		config: config,
		clock:  clock,
		logger: logger.With(slog.String("component", "game")),
	}
}

// Start begins a game on the host's request
func (s *Service) Start(room *model.Room, requester model.ConnID) (Outcome, error) {
	if !room.IsHost(requester) {
		return Outcome{}, model.ErrNotHost
	}
	if room.Game.InPlay() {
		return Outcome{}, model.ErrGameAlreadyStarted
	}
	if room.Game.Phase != model.PhaseLobby {
		return Outcome{}, model.ErrInvalidPhase
	}
	if len(room.Players) < model.MinPlayers {
		return Outcome{}, model.ErrInsufficientPlayers
	}
	return s.begin(room)
}

// begin is the shared path for a first game and a rematch
func (s *Service) begin(room *model.Room) (Outcome, error) {
	game := room.Game
	generation := game.Generation + 1
	last := game.Current
	s.Reset(room)

	// The opening round must not repeat the entity that closed the last game
	game.Current = last
	game.Generation = generation
	game.Phase = model.PhaseActive
	game.Started = true
	game.StartedAt = s.clock.Now()

	var out Outcome
	out.emit(model.ToRoom(room.Code, model.EventGameStarted, model.GameStartedPayload{
		Region:      game.Region,
		TotalRounds: game.TotalRounds,
		Scoreboard:  room.Scoreboard(),
	}))

	round, err := s.StartRound(room)
	if err != nil {
		s.Reset(room)
		return Outcome{}, err
	}
	out.merge(round)

	s.logger.Info("game started",
		slog.String("code", string(room.Code)),
		slog.Int("generation", generation),
		slog.Int("players", len(room.Players)))

	return out, nil
}

// StartRound opens the next round with a fresh entity
func (s *Service) StartRound(room *model.Room) (Outcome, error) {
	game := room.Game
	entity, err := s.picker.Pick(game.Region, game.Current)
	if err != nil {
		return Outcome{}, err
	}

	for _, p := range room.Players {
		p.ResetRound()
	}
	game.Round++
	game.Previous = game.Current
	game.Current = entity
	game.RoundResolved = false
	game.Phase = model.PhaseActive
	room.UpdatedAt = s.clock.Now()

	var out Outcome
	out.emit(model.ToRoom(room.Code, model.EventNewRound, model.NewRoundPayload{
		Round:       game.Round,
		TotalRounds: game.TotalRounds,
		Entity:      entity,
		Scoreboard:  room.Scoreboard(),
	}))
	return out, nil
}

// SubmitCorrectGuess awards the round to the first player who reports a
// correct guess
func (s *Service) SubmitCorrectGuess(room *model.Room, conn model.ConnID) (Outcome, error) {
	player, err := s.guessingPlayer(room, conn)
	if err != nil {
		return Outcome{}, err
	}

	// Claim the round before any side effect
	room.Game.RoundResolved = true
	room.Game.Phase = model.PhaseRoundResolved
	player.HasGuessedCorrectly = true
	player.Score++

	return s.resolveRound(room, player), nil
}

// ReportExhausted marks a player as out of attempts for the round. The
// round resolves without a winner once nobody can still guess.
func (s *Service) ReportExhausted(room *model.Room, conn model.ConnID) (Outcome, error) {
	player, err := s.guessingPlayer(room, conn)
	if err != nil {
		return Outcome{}, err
	}
	player.IsEliminated = true

	remaining := remainingGuessers(room)
	if remaining == 0 {
		room.Game.RoundResolved = true
		room.Game.Phase = model.PhaseRoundResolved
		return s.resolveRound(room, nil), nil
	}

	var out Outcome
	out.emit(model.ToRoomExcept(room.Code, conn, model.EventPlayerEliminated, model.PlayerEliminatedPayload{
		Player:      conn,
		DisplayName: player.DisplayName,
		Remaining:   remaining,
	}))
	return out, nil
}

func (s *Service) guessingPlayer(room *model.Room, conn model.ConnID) (*model.Player, error) {
	if room.Game.Phase != model.PhaseActive {
		return nil, model.ErrInvalidPhase
	}
	if room.Game.RoundResolved {
		return nil, model.ErrRoundResolved
	}
	player := room.GetPlayer(conn)
	if player == nil {
		return nil, model.ErrNotInRoom
	}
	if !player.CanGuess() {
		return nil, model.ErrAlreadyResolved
	}
	return player, nil
}

func remainingGuessers(room *model.Room) int {
	n := 0
	for _, p := range room.Players {
		if p.CanGuess() {
			n++
		}
	}
	return n
}

// resolveRound announces the result and schedules what comes next.
// winner is nil when the round resolved with nobody guessing correctly.
func (s *Service) resolveRound(room *model.Room, winner *model.Player) Outcome {
	game := room.Game
	result := model.RoundResultPayload{
		Round:      game.Round,
		Scoreboard: room.Scoreboard(),
		IsFinal:    game.IsFinalRound(),
	}
	if game.Current != nil {
		result.EntityName = game.Current.Name
	}
	if winner != nil {
		id := winner.ConnID
		result.Winner = &id
		result.WinnerName = winner.DisplayName
	}

	kind := FollowUpNextRound
	if result.IsFinal {
		kind = FollowUpEndGame
	}

	s.logger.Debug("round resolved",
		slog.String("code", string(room.Code)),
		slog.Int("round", game.Round),
		slog.Bool("has_winner", winner != nil))

	var out Outcome
	out.emit(model.ToRoom(room.Code, model.EventRoundResult, result))
	out.FollowUp = &FollowUp{
		Kind:       kind,
		Room:       room.Code,
		Generation: game.Generation,
		Round:      game.Round,
		After:      s.config.RoundDelay,
	}
	return out
}

// Advance applies a fired follow-up. Follow-ups from an earlier game, an
// earlier round or a room no longer awaiting one are rejected.
func (s *Service) Advance(room *model.Room, f FollowUp) (Outcome, error) {
	game := room.Game
	if f.Generation != game.Generation || f.Round != game.Round || game.Phase != model.PhaseRoundResolved {
		return Outcome{}, model.ErrInvalidPhase
	}

	switch f.Kind {
	case FollowUpNextRound:
		out, err := s.StartRound(room)
		if err != nil {
			s.logger.Error("failed to start round, ending game",
				slog.String("code", string(room.Code)),
				slog.String("error", err.Error()))
			return s.End(room), nil
		}
		return out, nil
	case FollowUpEndGame:
		return s.End(room), nil
	}
	return Outcome{}, model.ErrInvalidPhase
}

// Winners returns every player holding the maximum score, in roster order
func Winners(players []*model.Player) []model.ConnID {
	if len(players) == 0 {
		return nil
	}
	best := players[0].Score
	for _, p := range players[1:] {
		best = max(best, p.Score)
	}
	var winners []model.ConnID
	for _, p := range players {
		if p.Score == best {
			winners = append(winners, p.ConnID)
		}
	}
	return winners
}

// End finishes the game. Ties are reported as a draw between every
// player on the top score.
func (s *Service) End(room *model.Room) Outcome {
	game := room.Game
	now := s.clock.Now()

	game.Phase = model.PhaseGameOver
	game.RoundResolved = true
	game.Winners = Winners(room.Players)
	game.Draw = len(game.Winners) > 1
	clear(room.RematchVotes)
	room.UpdatedAt = now

	scores := room.Scoreboard()
	var out Outcome
	out.emit(model.ToRoom(room.Code, model.EventGameOver, model.GameOverPayload{
		Winners:    game.Winners,
		Draw:       game.Draw,
		Scoreboard: scores,
	}))
	out.Finished = &model.GameSummary{
		Code:        room.Code,
		Generation:  game.Generation,
		Region:      game.Region,
		Rounds:      game.Round,
		Scores:      scores,
		Winners:     game.Winners,
		Draw:        game.Draw,
		CompletedAt: now,
	}

	s.logger.Info("game over",
		slog.String("code", string(room.Code)),
		slog.Int("generation", game.Generation),
		slog.Int("rounds", game.Round),
		slog.Bool("draw", game.Draw))

	return out
}

// VoteRematch records a rematch request; once every occupant has voted a
// new game begins
func (s *Service) VoteRematch(room *model.Room, conn model.ConnID) (Outcome, error) {
	if room.Game.Phase != model.PhaseGameOver {
		return Outcome{}, model.ErrInvalidPhase
	}
	if room.GetPlayer(conn) == nil {
		return Outcome{}, model.ErrNotInRoom
	}
	room.RematchVotes[conn] = struct{}{}
	return s.tally(room)
}

// CancelRematch withdraws a rematch request
func (s *Service) CancelRematch(room *model.Room, conn model.ConnID) (Outcome, error) {
	if room.Game.Phase != model.PhaseGameOver {
		return Outcome{}, model.ErrInvalidPhase
	}
	if room.GetPlayer(conn) == nil {
		return Outcome{}, model.ErrNotInRoom
	}
	delete(room.RematchVotes, conn)
	return s.status(room), nil
}

// tally starts the rematch if the vote is complete, otherwise reports it
func (s *Service) tally(room *model.Room) (Outcome, error) {
	if len(room.Players) >= model.MinPlayers && len(room.RematchVotes) == len(room.Players) {
		return s.begin(room)
	}
	return s.status(room), nil
}

func (s *Service) status(room *model.Room) Outcome {
	votes := make([]model.ConnID, 0, len(room.RematchVotes))
	for _, id := range room.ConnIDs() {
		if _, ok := room.RematchVotes[id]; ok {
			votes = append(votes, id)
		}
	}

	var out Outcome
	out.emit(model.ToRoom(room.Code, model.EventRematchStatus, model.RematchStatusPayload{
		Votes:  votes,
		Needed: max(len(room.Players), model.MinPlayers),
	}))
	return out
}

// PlayerLeft adjusts the session after conn has been removed from the
// roster of a room that still has occupants
func (s *Service) PlayerLeft(room *model.Room, conn model.ConnID) (Outcome, error) {
	game := room.Game
	switch {
	case game.InPlay() && len(room.Players) < model.MinPlayers:
		s.logger.Info("too few players remain, ending game",
			slog.String("code", string(room.Code)),
			slog.String("left", string(conn)))
		return s.End(room), nil

	case game.Phase == model.PhaseActive && !game.RoundResolved && remainingGuessers(room) == 0:
		// Everyone still here had already run out of attempts
		game.RoundResolved = true
		game.Phase = model.PhaseRoundResolved
		return s.resolveRound(room, nil), nil

	case game.Phase == model.PhaseGameOver:
		return s.tally(room)
	}
	return Outcome{}, nil
}

// Reset returns the session to the lobby, clearing scores, flags and
// rematch votes. The generation survives so stale follow-ups stay stale.
func (s *Service) Reset(room *model.Room) {
	room.Game.Reset()
	for _, p := range room.Players {
		p.ResetGame()
	}
	clear(room.RematchVotes)
	room.UpdatedAt = s.clock.Now()
}
