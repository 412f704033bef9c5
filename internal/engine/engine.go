package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/geoduel/internal/dependencies/clock"
	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/services/catalog"
	"github.com/mcoot/geoduel/internal/services/chat"
	"github.com/mcoot/geoduel/internal/services/game"
	"github.com/mcoot/geoduel/internal/services/ratelimit"
	"github.com/mcoot/geoduel/internal/services/room"
	"github.com/mcoot/geoduel/internal/storage"
)

// Broadcaster delivers an event to one live connection
type Broadcaster interface {
	Send(conn model.ConnID, eventType model.EventType, payload any)
}

// Observer receives every room-wide event, for read-only spectators
type Observer interface {
	RoomEvent(code model.RoomCode, eventType model.EventType, payload any)
	RoomClosed(code model.RoomCode)
}

// Deps are the collaborators an Engine is built from
type Deps struct {
	Rooms       *room.Registry
	Connections *room.Connections
	Sessions    *game.Service
	Limiter     *ratelimit.Service
	Catalog     *catalog.Service
	Storage     storage.Storage
	Output      Broadcaster
	Observers   Observer // optional
	Executor    Executor
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Engine handles every client action and scheduled follow-up. It is not
// safe for concurrent use: all calls must come from the event loop.
type Engine struct {
	rooms     *room.Registry
	conns     *room.Connections
	sessions  *game.Service
	limiter   *ratelimit.Service
	catalog   *catalog.Service
	storage   storage.Storage
	out       Broadcaster
	observers Observer
	exec      Executor
	clock     clock.Clock
	logger    *slog.Logger

	chats  map[model.RoomCode]*chat.Log
	timers map[model.RoomCode]clock.Timer
}

// New creates an engine
func New(deps Deps) *Engine {
	connections := deps.Connections
	if connections == nil {
		connections = room.NewConnections()
	}
	return &Engine{
		rooms:     deps.Rooms,
		conns:     connections,
		sessions:  deps.Sessions,
		limiter:   deps.Limiter,
		catalog:   deps.Catalog,
		storage:   deps.Storage,
		out:       deps.Output,
		observers: deps.Observers,
		exec:      deps.Executor,
		clock:     deps.Clock,
		logger:    deps.Logger.With(slog.String("component", "engine")),
		chats:     make(map[model.RoomCode]*chat.Log),
		timers:    make(map[model.RoomCode]clock.Timer),
	}
}

// CreateRoomRequest is the create-room payload
type CreateRoomRequest struct {
	Region      string `json:"region"`
	MaxPlayers  int    `json:"maxPlayers"`
	DisplayName string `json:"displayName"`
}

// JoinRoomRequest is the join-room payload
type JoinRoomRequest struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
}

// ChatRequest is the chat-message payload
type ChatRequest struct {
	Text string `json:"text"`
}

// Connect registers a new connection and sends it the region list
func (e *Engine) Connect(ctx context.Context, conn model.ConnID) {
	e.conns.Connect(conn, e.clock.Now())
	e.logger.Debug("connection opened", slog.String("conn", string(conn)))

	e.dispatch(model.ToConn(conn, model.EventInitData, model.InitDataPayload{
		You:     conn,
		Regions: e.catalog.Regions(),
	}))
}

// Disconnect removes a connection, leaving any room it occupied
func (e *Engine) Disconnect(ctx context.Context, conn model.ConnID) {
	code, inRoom := e.conns.Disconnect(conn)
	if inRoom {
		e.leaveRoom(ctx, conn, code)
	}
	if err := e.limiter.Forget(ctx, conn); err != nil {
		e.logger.Warn("failed to forget rate windows",
			slog.String("conn", string(conn)),
			slog.String("error", err.Error()))
	}
	e.logger.Debug("connection closed", slog.String("conn", string(conn)))
}

// CreateRoom makes conn the host of a new room
func (e *Engine) CreateRoom(ctx context.Context, conn model.ConnID, req CreateRoomRequest) {
	if !e.conns.IsLive(conn) {
		return
	}
	if !e.limiter.Allow(ctx, conn, model.ActionCreateRoom) {
		e.logger.Debug("create-room rate limited", slog.String("conn", string(conn)))
		return
	}

	r, err := e.rooms.Create(conn, req.DisplayName, req.Region, req.MaxPlayers)
	if err != nil {
		e.reject(conn, model.EventError, err)
		return
	}
	if current, ok := e.conns.RoomOf(conn); ok {
		e.leaveRoom(ctx, conn, current)
	}
	e.conns.Assign(conn, r.Code)
	e.chats[r.Code] = chat.NewLog(e.clock)

	e.dispatch(model.ToConn(conn, model.EventRoomCreated, model.RoomCreatedPayload{
		Code:        r.Code,
		Region:      r.Game.Region,
		MaxPlayers:  r.MaxPlayers,
		TotalRounds: r.Game.TotalRounds,
	}))
	e.dispatch(rosterEvent(r))
}

// JoinRoom adds conn to an existing room
func (e *Engine) JoinRoom(ctx context.Context, conn model.ConnID, req JoinRoomRequest) {
	if !e.conns.IsLive(conn) {
		return
	}
	if !e.limiter.Allow(ctx, conn, model.ActionJoinRoom) {
		e.reject(conn, model.EventJoinError, model.ErrRateLimited)
		return
	}

	// A join that cannot succeed must not pull conn out of its current room
	if _, err := e.rooms.CanJoin(req.Code, conn); err != nil {
		e.reject(conn, model.EventJoinError, err)
		return
	}
	if current, ok := e.conns.RoomOf(conn); ok {
		e.leaveRoom(ctx, conn, current)
	}

	r, err := e.rooms.Join(req.Code, conn, req.DisplayName)
	if err != nil {
		e.reject(conn, model.EventJoinError, err)
		return
	}
	e.conns.Assign(conn, r.Code)

	e.dispatch(model.ToConn(conn, model.EventJoinedRoom, model.JoinedRoomPayload{
		Code:        r.Code,
		Region:      r.Game.Region,
		MaxPlayers:  r.MaxPlayers,
		TotalRounds: r.Game.TotalRounds,
		Host:        r.Host,
	}))
	if log, ok := e.chats[r.Code]; ok {
		e.dispatch(model.ToConn(conn, model.EventChatHistory, model.ChatHistoryPayload{
			Messages: log.History(),
		}))
	}
	e.dispatch(rosterEvent(r))

	e.logger.Info("player joined room",
		slog.String("code", string(r.Code)),
		slog.String("conn", string(conn)),
		slog.Int("players", len(r.Players)))
}

// StartGame starts the game in conn's room if conn is the host
func (e *Engine) StartGame(ctx context.Context, conn model.ConnID) {
	r, ok := e.gameplayRoom(ctx, conn)
	if !ok {
		return
	}
	out, err := e.sessions.Start(r, conn)
	if err != nil {
		e.reject(conn, model.EventError, err)
		return
	}
	e.apply(ctx, out)
}

// SubmitCorrectGuess reports that conn guessed the current entity
func (e *Engine) SubmitCorrectGuess(ctx context.Context, conn model.ConnID) {
	e.play(ctx, conn, "submit-guess-correct", e.sessions.SubmitCorrectGuess)
}

// ReportExhausted reports that conn ran out of attempts this round
func (e *Engine) ReportExhausted(ctx context.Context, conn model.ConnID) {
	e.play(ctx, conn, "report-out-of-attempts", e.sessions.ReportExhausted)
}

// RequestRematch votes for another game
func (e *Engine) RequestRematch(ctx context.Context, conn model.ConnID) {
	e.play(ctx, conn, "request-rematch", e.sessions.VoteRematch)
}

// CancelRematch withdraws a rematch vote
func (e *Engine) CancelRematch(ctx context.Context, conn model.ConnID) {
	e.play(ctx, conn, "cancel-rematch", e.sessions.CancelRematch)
}

// play runs a session transition whose rejections are silent no-ops
func (e *Engine) play(ctx context.Context, conn model.ConnID, action string, transition func(*model.Room, model.ConnID) (game.Outcome, error)) {
	r, ok := e.gameplayRoom(ctx, conn)
	if !ok {
		return
	}
	out, err := transition(r, conn)
	if err != nil {
		e.logger.Debug("action ignored",
			slog.String("action", action),
			slog.String("code", string(r.Code)),
			slog.String("conn", string(conn)),
			slog.String("reason", err.Error()))
		return
	}
	e.apply(ctx, out)
}

// gameplayRoom resolves conn's room for a rate-limited gameplay action
func (e *Engine) gameplayRoom(ctx context.Context, conn model.ConnID) (*model.Room, bool) {
	r, ok := e.roomOf(conn)
	if !ok {
		return nil, false
	}
	if !e.limiter.Allow(ctx, conn, model.ActionGameplay) {
		e.logger.Debug("gameplay rate limited", slog.String("conn", string(conn)))
		return nil, false
	}
	return r, true
}

// SendChat appends a message to conn's room chat
func (e *Engine) SendChat(ctx context.Context, conn model.ConnID, req ChatRequest) {
	r, ok := e.roomOf(conn)
	if !ok {
		return
	}
	if !e.limiter.Allow(ctx, conn, model.ActionChat) {
		return
	}
	player := r.GetPlayer(conn)
	log := e.chats[r.Code]
	if player == nil || log == nil {
		return
	}

	entry, ok := log.Append(player.DisplayName, req.Text)
	if !ok {
		return
	}
	e.dispatch(model.ToRoom(r.Code, model.EventNewChatMessage, entry))
}

// roomOf re-validates that conn is live and still occupies its room
func (e *Engine) roomOf(conn model.ConnID) (*model.Room, bool) {
	if !e.conns.IsLive(conn) {
		return nil, false
	}
	code, ok := e.conns.RoomOf(conn)
	if !ok {
		return nil, false
	}
	r, err := e.rooms.Get(code)
	if err != nil || r.GetPlayer(conn) == nil {
		return nil, false
	}
	return r, true
}

// leaveRoom removes conn from code and lets the session react
func (e *Engine) leaveRoom(ctx context.Context, conn model.ConnID, code model.RoomCode) {
	res, err := e.rooms.Leave(code, conn)
	e.conns.Release(conn, code)
	if err != nil {
		e.logger.Debug("leave ignored",
			slog.String("code", string(code)),
			slog.String("conn", string(conn)),
			slog.String("reason", err.Error()))
		return
	}
	if res.Deleted {
		e.closeRoom(code)
		return
	}

	e.dispatch(rosterEvent(res.Room))
	if res.NewHost != "" {
		e.logger.Info("host migrated",
			slog.String("code", string(code)),
			slog.String("host", string(res.NewHost)))
		e.dispatch(model.ToConn(res.NewHost, model.EventBecameHost, model.BecameHostPayload{Code: code}))
	}

	out, err := e.sessions.PlayerLeft(res.Room, conn)
	if err != nil {
		e.logger.Debug("session ignored departure",
			slog.String("code", string(code)),
			slog.String("reason", err.Error()))
		return
	}
	e.apply(ctx, out)
}

// closeRoom drops everything held for a deleted room
func (e *Engine) closeRoom(code model.RoomCode) {
	delete(e.chats, code)
	if pending, ok := e.timers[code]; ok {
		pending.Stop()
		delete(e.timers, code)
	}
	if e.observers != nil {
		e.observers.RoomClosed(code)
	}
}

// apply emits an outcome's events, schedules its follow-up and records a
// finished game
func (e *Engine) apply(ctx context.Context, out game.Outcome) {
	for _, ev := range out.Events {
		e.dispatch(ev)
	}
	if out.Finished != nil {
		if err := e.storage.SaveGameSummary(ctx, out.Finished); err != nil {
			e.logger.Error("failed to save game summary",
				slog.String("code", string(out.Finished.Code)),
				slog.String("error", err.Error()))
		}
	}
	if out.FollowUp != nil {
		e.schedule(*out.FollowUp)
	}
}

// schedule arranges for f to be applied on the loop once its delay passes.
// A room has at most one pending follow-up; one that slips through after
// being superseded is rejected by Advance.
func (e *Engine) schedule(f game.FollowUp) {
	if pending, ok := e.timers[f.Room]; ok {
		pending.Stop()
	}
	e.timers[f.Room] = e.clock.AfterFunc(f.After, func() {
		if !e.exec.Submit(func(ctx context.Context) { e.advance(ctx, f) }) {
			e.logger.Debug("follow-up dropped, loop stopped", slog.String("code", string(f.Room)))
		}
	})
}

func (e *Engine) advance(ctx context.Context, f game.FollowUp) {
	r, err := e.rooms.Get(f.Room)
	if err != nil {
		e.logger.Debug("follow-up for missing room", slog.String("code", string(f.Room)))
		return
	}
	out, err := e.sessions.Advance(r, f)
	if err != nil {
		e.logger.Debug("stale follow-up",
			slog.String("code", string(f.Room)),
			slog.String("kind", f.Kind.String()),
			slog.Int("round", f.Round),
			slog.Int("generation", f.Generation))
		return
	}
	e.apply(ctx, out)
}

// dispatch resolves an event's audience against the current roster
func (e *Engine) dispatch(ev model.Event) {
	if ev.Audience == model.AudienceConn {
		e.out.Send(ev.Conn, ev.Type, ev.Payload)
		return
	}

	r, err := e.rooms.Get(ev.Room)
	if err != nil {
		return
	}
	for _, conn := range r.ConnIDs() {
		if ev.Audience == model.AudienceRoomExcept && conn == ev.Conn {
			continue
		}
		e.out.Send(conn, ev.Type, ev.Payload)
	}
	if e.observers != nil {
		e.observers.RoomEvent(ev.Room, ev.Type, ev.Payload)
	}
}

// reject sends a single-recipient error event
func (e *Engine) reject(conn model.ConnID, eventType model.EventType, err error) {
	e.dispatch(model.ToConn(conn, eventType, model.ErrorPayload{
		Code:    ErrorCode(err),
		Message: err.Error(),
	}))
}

// ErrorCode maps a domain error to a stable machine-readable code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, model.ErrRoomFull):
		return "room_full"
	case errors.Is(err, model.ErrGameAlreadyStarted):
		return "game_already_started"
	case errors.Is(err, model.ErrAlreadyInRoom):
		return "already_in_room"
	case errors.Is(err, model.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, model.ErrNotHost):
		return "not_host"
	case errors.Is(err, model.ErrInsufficientPlayers):
		return "insufficient_players"
	case errors.Is(err, model.ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, model.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, model.ErrCodeExhausted):
		return "code_exhausted"
	}
	return "internal_error"
}

func rosterEvent(r *model.Room) model.Event {
	return model.ToRoom(r.Code, model.EventRosterChanged, model.RosterChangedPayload{
		Host:     r.Host,
		Players:  r.Scoreboard(),
		CanStart: r.Game.Phase == model.PhaseLobby && len(r.Players) >= model.MinPlayers,
	})
}

// Reclaim deletes rooms that no live connection occupies
func (e *Engine) Reclaim(ctx context.Context) int {
	removed := e.rooms.Reclaim(e.conns.IsLive)
	for _, code := range removed {
		e.closeRoom(code)
	}
	return len(removed)
}

// ResetRateLimits clears every rate-limit window
func (e *Engine) ResetRateLimits(ctx context.Context) {
	if err := e.limiter.ResetAll(ctx); err != nil {
		e.logger.Warn("failed to reset rate limits", slog.String("error", err.Error()))
	}
}

// RoomSummary describes an active room
type RoomSummary struct {
	Code        model.RoomCode
	Region      model.Region
	Phase       model.Phase
	Players     int
	MaxPlayers  int
	Round       int
	TotalRounds int
	CreatedAt   time.Time
}

// RoomSnapshot is a read-only view of one room
type RoomSnapshot struct {
	RoomSummary
	Host         model.ConnID
	Scoreboard   []model.ScoreEntry
	RematchVotes int
	Winners      []model.ConnID
	Draw         bool
	StartedAt    time.Time // zero until a game has started
}

func summarize(r *model.Room) RoomSummary {
	return RoomSummary{
		Code:        r.Code,
		Region:      r.Game.Region,
		Phase:       r.Game.Phase,
		Players:     len(r.Players),
		MaxPlayers:  r.MaxPlayers,
		Round:       r.Game.Round,
		TotalRounds: r.Game.TotalRounds,
		CreatedAt:   r.CreatedAt,
	}
}

// ListRooms returns a summary of every active room, oldest first
func (e *Engine) ListRooms() []RoomSummary {
	rooms := e.rooms.List()
	summaries := make([]RoomSummary, len(rooms))
	for i, r := range rooms {
		summaries[i] = summarize(r)
	}
	return summaries
}

// RoomSnapshot returns a view of one room; the code is normalised first
func (e *Engine) RoomSnapshot(code string) (RoomSnapshot, error) {
	r, err := e.rooms.Get(room.NormalizeCode(code))
	if err != nil {
		return RoomSnapshot{}, err
	}
	return RoomSnapshot{
		RoomSummary:  summarize(r),
		Host:         r.Host,
		Scoreboard:   r.Scoreboard(),
		RematchVotes: len(r.RematchVotes),
		Winners:      append([]model.ConnID(nil), r.Game.Winners...),
		Draw:         r.Game.Draw,
		StartedAt:    r.Game.StartedAt,
	}, nil
}

// History returns the finished games recorded for a room code
func (e *Engine) History(ctx context.Context, code string) ([]model.GameSummary, error) {
	return e.storage.GetGameSummaries(ctx, room.NormalizeCode(code))
}

// Regions lists the catalog's regions
func (e *Engine) Regions() []model.RegionInfo {
	return e.catalog.Regions()
}

// Stats reports the number of live connections and active rooms
func (e *Engine) Stats() (connections, rooms int) {
	return e.conns.Count(), e.rooms.Count()
}
