package model

// EventType identifies an outbound event on the wire
type EventType string

const (
	// Connection events
	EventInitData EventType = "init-data"
	EventError    EventType = "error"

	// Room events
	EventRoomCreated   EventType = "room-created"
	EventJoinedRoom    EventType = "joined-room"
	EventJoinError     EventType = "join-error"
	EventRosterChanged EventType = "roster-changed"
	EventBecameHost    EventType = "became-host"

	// Game events
	EventGameStarted      EventType = "game-started"
	EventNewRound         EventType = "new-round"
	EventRoundResult      EventType = "round-result"
	EventPlayerEliminated EventType = "player-eliminated"
	EventGameOver         EventType = "game-over"
	EventRematchStatus    EventType = "rematch-status"

	// Chat events
	EventChatHistory    EventType = "chat-history"
	EventNewChatMessage EventType = "new-chat-message"
)

// Audience selects which connections receive an event
type Audience int

const (
	AudienceRoom       Audience = iota // Every occupant of Room
	AudienceConn                       // Only Conn
	AudienceRoomExcept                 // Every occupant of Room except Conn
)

// Event is an outbound message produced by the engine
type Event struct {
	Type     EventType
	Audience Audience
	Room     RoomCode
	Conn     ConnID
	Payload  any
}

// ToRoom addresses an event to every occupant of a room
func ToRoom(code RoomCode, t EventType, payload any) Event {
	return Event{Type: t, Audience: AudienceRoom, Room: code, Payload: payload}
}

// ToConn addresses an event to a single connection
func ToConn(conn ConnID, t EventType, payload any) Event {
	return Event{Type: t, Audience: AudienceConn, Conn: conn, Payload: payload}
}

// ToRoomExcept addresses an event to a room's occupants other than conn
func ToRoomExcept(code RoomCode, conn ConnID, t EventType, payload any) Event {
	return Event{Type: t, Audience: AudienceRoomExcept, Room: code, Conn: conn, Payload: payload}
}

// InitDataPayload is sent once when a connection opens
type InitDataPayload struct {
	You     ConnID       `json:"you"`
	Regions []RegionInfo `json:"regions"`
}

// ErrorPayload is a single-recipient rejection
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomCreatedPayload confirms a new room to its host
type RoomCreatedPayload struct {
	Code        RoomCode `json:"code"`
	Region      Region   `json:"region"`
	MaxPlayers  int      `json:"maxPlayers"`
	TotalRounds int      `json:"totalRounds"`
}

// JoinedRoomPayload confirms a join to the joining connection
type JoinedRoomPayload struct {
	Code        RoomCode `json:"code"`
	Region      Region   `json:"region"`
	MaxPlayers  int      `json:"maxPlayers"`
	TotalRounds int      `json:"totalRounds"`
	Host        ConnID   `json:"host"`
}

// RosterChangedPayload lists the current occupants
type RosterChangedPayload struct {
	Host     ConnID       `json:"host"`
	Players  []ScoreEntry `json:"players"`
	CanStart bool         `json:"canStart"`
}

// BecameHostPayload tells a player they now hold the host role
type BecameHostPayload struct {
	Code RoomCode `json:"code"`
}

// GameStartedPayload announces a new game
type GameStartedPayload struct {
	Region      Region       `json:"region"`
	TotalRounds int          `json:"totalRounds"`
	Scoreboard  []ScoreEntry `json:"scoreboard"`
}

// NewRoundPayload opens a round
type NewRoundPayload struct {
	Round       int          `json:"round"`
	TotalRounds int          `json:"totalRounds"`
	Entity      *Entity      `json:"entity"`
	Scoreboard  []ScoreEntry `json:"scoreboard"`
}

// RoundResultPayload reports how a round resolved. Winner is nil when
// every player ran out of attempts.
type RoundResultPayload struct {
	Round      int          `json:"round"`
	Winner     *ConnID      `json:"winner"`
	WinnerName string       `json:"winnerName,omitempty"`
	EntityName string       `json:"entityName"`
	Scoreboard []ScoreEntry `json:"scoreboard"`
	IsFinal    bool         `json:"isFinal"`
}

// PlayerEliminatedPayload tells opponents one competitor is out of attempts
type PlayerEliminatedPayload struct {
	Player      ConnID `json:"player"`
	DisplayName string `json:"displayName"`
	Remaining   int    `json:"remaining"`
}

// GameOverPayload reports the final result
type GameOverPayload struct {
	Winners    []ConnID     `json:"winners"`
	Draw       bool         `json:"draw"`
	Scoreboard []ScoreEntry `json:"scoreboard"`
}

// RematchStatusPayload reports the rematch tally
type RematchStatusPayload struct {
	Votes  []ConnID `json:"votes"`
	Needed int      `json:"needed"`
}

// ChatHistoryPayload replays a room's chat to a newcomer
type ChatHistoryPayload struct {
	Messages []ChatEntry `json:"messages"`
}
