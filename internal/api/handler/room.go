package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mcoot/geoduel/internal/api/apierr"
	"github.com/mcoot/geoduel/internal/api/response"
	"github.com/mcoot/geoduel/internal/engine"
	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/services/room"
	"github.com/mcoot/geoduel/internal/web/sse"
)

var noDeadline time.Time

// Engine is the read side of the engine the API serves
type Engine interface {
	ListRooms() []engine.RoomSummary
	RoomSnapshot(code string) (engine.RoomSnapshot, error)
	History(ctx context.Context, code string) ([]model.GameSummary, error)
	Regions() []model.RegionInfo
	Stats() (connections, rooms int)
}

// Runner executes a task on the event loop and waits for it
type Runner interface {
	Do(ctx context.Context, task engine.Task) error
}

// RoomHandler handles room endpoints
type RoomHandler struct {
	engine     Engine
	loop       Runner
	hubManager *sse.HubManager
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(engine Engine, loop Runner, hubManager *sse.HubManager) *RoomHandler {
	return &RoomHandler{engine: engine, loop: loop, hubManager: hubManager}
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	var rooms []engine.RoomSummary
	if err := h.loop.Do(r.Context(), func(context.Context) { rooms = h.engine.ListRooms() }); err != nil {
		WriteError(w, err)
		return
	}

	resp := response.RoomsResponse{Rooms: make([]response.RoomSummary, len(rooms))}
	for i, s := range rooms {
		resp.Rooms[i] = response.RoomSummaryFromEngine(s)
	}
	response.JSON(w, http.StatusOK, resp)
}

// roomCode reads and normalizes the {code} path variable
func roomCode(w http.ResponseWriter, r *http.Request) (model.RoomCode, bool) {
	code := room.NormalizeCode(mux.Vars(r)["code"])
	if !room.ValidCode(code) {
		WriteError(w, apierr.NewInvalidRequestError("Room codes contain only letters and digits"))
		return "", false
	}
	return code, true
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, ok := roomCode(w, r)
	if !ok {
		return
	}

	var snap engine.RoomSnapshot
	var snapErr error
	if err := h.loop.Do(r.Context(), func(context.Context) { snap, snapErr = h.engine.RoomSnapshot(string(code)) }); err != nil {
		WriteError(w, err)
		return
	}
	if snapErr != nil {
		WriteError(w, snapErr)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromEngine(snap))
}

// History handles GET /api/v1/rooms/{code}/history. Finished games stay
// visible after the room itself is gone.
func (h *RoomHandler) History(w http.ResponseWriter, r *http.Request) {
	code, ok := roomCode(w, r)
	if !ok {
		return
	}

	games, err := h.engine.History(r.Context(), string(code))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.HistoryFromModel(string(code), games))
}

// Events handles GET /api/v1/rooms/{code}/events
func (h *RoomHandler) Events(w http.ResponseWriter, r *http.Request) {
	code, ok := roomCode(w, r)
	if !ok {
		return
	}

	// Resolve the room and attach the observer on the loop, so the room
	// cannot close in between
	client := sse.NewClient(uuid.NewString())
	var hub *sse.Hub
	var snapErr error
	if err := h.loop.Do(r.Context(), func(context.Context) {
		snap, err := h.engine.RoomSnapshot(string(code))
		if err != nil {
			snapErr = err
			return
		}
		var attached bool
		if hub, attached = h.hubManager.Attach(snap.Code, client); !attached {
			snapErr = model.ErrRoomNotFound
		}
	}); err != nil {
		WriteError(w, err)
		return
	}
	if snapErr != nil {
		WriteError(w, snapErr)
		return
	}

	// Streams outlive the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(noDeadline)
	sse.ServeSSE(w, r, hub, client)
}
