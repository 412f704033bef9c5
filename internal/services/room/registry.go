package room

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mcoot/geoduel/internal/dependencies/clock"
	"github.com/mcoot/geoduel/internal/dependencies/random"
	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/sanitize"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 6
	// CodeAlphabet is the characters used in room codes (avoid confusing chars)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// MaxCodeInput caps how much of a typed code is considered
	MaxCodeInput = 10
	// MaxNameLength caps display names
	MaxNameLength = 20

	maxCodeAttempts = 64
)

// RegionResolver maps a requested region onto a known catalog region
type RegionResolver interface {
	Normalize(requested string) model.Region
}

// Registry owns the set of active rooms
type Registry struct {
	rooms       map[model.RoomCode]*model.Room
	regions     RegionResolver
	totalRounds int
	clock       clock.Clock
	random      random.Random
	logger      *slog.Logger
}

// NewRegistry creates an empty room registry
func NewRegistry(regions RegionResolver, totalRounds int, clock clock.Clock, random random.Random, logger *slog.Logger) *Registry {
	if totalRounds <= 0 {
		totalRounds = model.DefaultTotalRounds
	}
	return &Registry{
		rooms:       make(map[model.RoomCode]*model.Room),
		regions:     regions,
		totalRounds: totalRounds,
		clock:       clock,
		random:      random,
		logger:      logger.With(slog.String("component", "room-registry")),
	}
}

// NormalizeCode case-folds and length-caps a typed room code
func NormalizeCode(input string) model.RoomCode {
	code := strings.ToUpper(strings.TrimSpace(input))
	if runes := []rune(code); len(runes) > MaxCodeInput {
		code = string(runes[:MaxCodeInput])
	}
	return model.RoomCode(code)
}

// ValidCode reports whether a normalized code could name a room: non-empty
// and drawn from letters and digits only
func ValidCode(code model.RoomCode) bool {
	if code == "" {
		return false
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// DisplayName sanitizes a requested name, defaulting to "Player N" where N
// is the player's 1-based admission number in the room
func DisplayName(requested string, position int) string {
	if name := sanitize.Text(requested, MaxNameLength); name != "" {
		return name
	}
	return fmt.Sprintf("Player %d", position)
}

// Create registers a new room with host as sole occupant
func (r *Registry) Create(host model.ConnID, displayName, region string, maxPlayers int) (*model.Room, error) {
	code, err := r.newCode()
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	player := model.NewPlayer(host, DisplayName(displayName, 1), now)
	room := model.NewRoom(code, player, r.regions.Normalize(region), maxPlayers, r.totalRounds, now)
	r.rooms[code] = room

	r.logger.Info("room created",
		slog.String("code", string(code)),
		slog.String("region", string(room.Game.Region)),
		slog.Int("max_players", room.MaxPlayers))

	return room, nil
}

// newCode generates a code not used by any active room
func (r *Registry) newCode() (model.RoomCode, error) {
	for range maxCodeAttempts {
		code := model.RoomCode(r.random.String(CodeLength, CodeAlphabet))
		if _, exists := r.rooms[code]; !exists && code != "" {
			return code, nil
		}
	}
	return "", model.ErrCodeExhausted
}

// Get returns the room for a code
func (r *Registry) Get(code model.RoomCode) (*model.Room, error) {
	room, ok := r.rooms[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room, nil
}

// CanJoin looks up the room input names and checks conn could be admitted,
// without changing anything
func (r *Registry) CanJoin(input string, conn model.ConnID) (*model.Room, error) {
	room, err := r.Get(NormalizeCode(input))
	if err != nil {
		return nil, err
	}

	// Check if already in room
	if room.GetPlayer(conn) != nil {
		return nil, model.ErrAlreadyInRoom
	}
	if room.Game.InPlay() {
		return nil, model.ErrGameAlreadyStarted
	}
	if room.IsFull() {
		return nil, model.ErrRoomFull
	}
	return room, nil
}

// Join appends conn to the room's roster
func (r *Registry) Join(input string, conn model.ConnID, displayName string) (*model.Room, error) {
	room, err := r.CanJoin(input, conn)
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	room.Admitted++
	room.Players = append(room.Players, model.NewPlayer(conn, DisplayName(displayName, room.Admitted), now))
	room.UpdatedAt = now

	return room, nil
}

// LeaveResult describes the effect of removing a player
type LeaveResult struct {
	Room    *model.Room
	Player  *model.Player
	WasHost bool
	NewHost model.ConnID // set when the host role moved
	Deleted bool         // the room was empty and has been removed
}

// Leave removes conn from a room, migrating the host role to the
// earliest-joined remaining player and deleting the room once empty
func (r *Registry) Leave(code model.RoomCode, conn model.ConnID) (LeaveResult, error) {
	room, err := r.Get(code)
	if err != nil {
		return LeaveResult{}, err
	}

	wasHost := room.IsHost(conn)
	player := room.RemovePlayer(conn)
	if player == nil {
		return LeaveResult{}, model.ErrNotInRoom
	}
	res := LeaveResult{Room: room, Player: player, WasHost: wasHost}

	// If room is now empty, delete it
	if len(room.Players) == 0 {
		r.Delete(code)
		res.Deleted = true
		return res, nil
	}

	// If host left, assign new host
	if wasHost {
		room.Host = room.Players[0].ConnID
		res.NewHost = room.Host
	}
	room.UpdatedAt = r.clock.Now()

	return res, nil
}

// Delete removes a room
func (r *Registry) Delete(code model.RoomCode) {
	if _, ok := r.rooms[code]; ok {
		delete(r.rooms, code)
		r.logger.Info("room deleted", slog.String("code", string(code)))
	}
}

// Reclaim deletes every room none of whose occupants is live, returning their codes
func (r *Registry) Reclaim(isLive func(model.ConnID) bool) []model.RoomCode {
	var removed []model.RoomCode
	for code, room := range r.rooms {
		alive := false
		for _, p := range room.Players {
			if isLive(p.ConnID) {
				alive = true
				break
			}
		}
		if !alive {
			delete(r.rooms, code)
			removed = append(removed, code)
		}
	}
	if len(removed) > 0 {
		r.logger.Info("abandoned rooms reclaimed", slog.Int("removed", len(removed)))
	}
	return removed
}

// List returns the active rooms, oldest first
func (r *Registry) List() []*model.Room {
	rooms := make([]*model.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].Code < rooms[j].Code
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms
}

// Count returns the number of active rooms
func (r *Registry) Count() int {
	return len(r.rooms)
}
