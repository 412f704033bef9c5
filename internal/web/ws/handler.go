package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/geoduel/internal/engine"
	"github.com/mcoot/geoduel/internal/model"
)

// Inbound message types
const (
	TypeCreateRoom     = "create-room"
	TypeJoinRoom       = "join-room"
	TypeStartGame      = "start-game"
	TypeGuessCorrect   = "submit-guess-correct"
	TypeOutOfAttempts  = "report-out-of-attempts"
	TypeRequestRematch = "request-rematch"
	TypeCancelRematch  = "cancel-rematch"
	TypeChatMessage    = "chat-message"
)

// Actions is the engine surface the gateway drives
type Actions interface {
	Connect(ctx context.Context, conn model.ConnID)
	Disconnect(ctx context.Context, conn model.ConnID)
	CreateRoom(ctx context.Context, conn model.ConnID, req engine.CreateRoomRequest)
	JoinRoom(ctx context.Context, conn model.ConnID, req engine.JoinRoomRequest)
	StartGame(ctx context.Context, conn model.ConnID)
	SubmitCorrectGuess(ctx context.Context, conn model.ConnID)
	ReportExhausted(ctx context.Context, conn model.ConnID)
	RequestRematch(ctx context.Context, conn model.ConnID)
	CancelRematch(ctx context.Context, conn model.ConnID)
	SendChat(ctx context.Context, conn model.ConnID, req engine.ChatRequest)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades requests to websocket sessions and feeds their
// messages to the event loop
type Handler struct {
	hub     *Hub
	actions Actions
	exec    engine.Executor
	logger  *slog.Logger
}

// NewHandler creates the websocket endpoint handler
func NewHandler(hub *Hub, actions Actions, exec engine.Executor, logger *slog.Logger) *Handler {
	return &Handler{
		hub:     hub,
		actions: actions,
		exec:    exec,
		logger:  logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP handles GET /ws
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(model.ConnID(uuid.NewString()), conn)
	h.hub.add(client)
	h.submit(func(ctx context.Context) { h.actions.Connect(ctx, client.id) })

	go client.writePump()
	client.readPump(func(env Envelope) { h.handle(client.id, env) })

	h.hub.remove(client)
	h.submit(func(ctx context.Context) { h.actions.Disconnect(ctx, client.id) })
}

func (h *Handler) submit(task engine.Task) {
	if !h.exec.Submit(task) {
		h.logger.Warn("ws action dropped, loop stopped")
	}
}

// handle decodes one inbound envelope into an engine action
func (h *Handler) handle(conn model.ConnID, env Envelope) {
	var task engine.Task
	switch env.Type {
	case TypeCreateRoom:
		var req engine.CreateRoomRequest
		if !h.decode(conn, env, &req) {
			return
		}
		task = func(ctx context.Context) { h.actions.CreateRoom(ctx, conn, req) }
	case TypeJoinRoom:
		var req engine.JoinRoomRequest
		if !h.decode(conn, env, &req) {
			return
		}
		task = func(ctx context.Context) { h.actions.JoinRoom(ctx, conn, req) }
	case TypeChatMessage:
		var req engine.ChatRequest
		if !h.decode(conn, env, &req) {
			return
		}
		task = func(ctx context.Context) { h.actions.SendChat(ctx, conn, req) }
	case TypeStartGame:
		task = func(ctx context.Context) { h.actions.StartGame(ctx, conn) }
	case TypeGuessCorrect:
		task = func(ctx context.Context) { h.actions.SubmitCorrectGuess(ctx, conn) }
	case TypeOutOfAttempts:
		task = func(ctx context.Context) { h.actions.ReportExhausted(ctx, conn) }
	case TypeRequestRematch:
		task = func(ctx context.Context) { h.actions.RequestRematch(ctx, conn) }
	case TypeCancelRematch:
		task = func(ctx context.Context) { h.actions.CancelRematch(ctx, conn) }
	default:
		h.logger.Debug("unknown message type",
			slog.String("conn", string(conn)),
			slog.String("type", env.Type))
		return
	}
	h.submit(task)
}

// decode unmarshals a payload; a missing payload leaves v at its zero value
func (h *Handler) decode(conn model.ConnID, env Envelope, v any) bool {
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return true
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		h.logger.Debug("malformed payload",
			slog.String("conn", string(conn)),
			slog.String("type", env.Type),
			slog.String("error", err.Error()))
		return false
	}
	return true
}
