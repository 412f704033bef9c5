package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/geoduel/internal/dependencies/mocks"
	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/services/catalog"
	"github.com/mcoot/geoduel/internal/services/game"
	"github.com/mcoot/geoduel/internal/services/ratelimit"
	"github.com/mcoot/geoduel/internal/services/room"
	"github.com/mcoot/geoduel/internal/storage/memory"
	"github.com/mcoot/geoduel/internal/testutil"
)

type sentEvent struct {
	conn    model.ConnID
	typ     model.EventType
	payload any
}

type recorder struct {
	sent   []sentEvent
	room   []model.EventType
	closed []model.RoomCode
}

func (r *recorder) Send(conn model.ConnID, eventType model.EventType, payload any) {
	r.sent = append(r.sent, sentEvent{conn: conn, typ: eventType, payload: payload})
}

func (r *recorder) RoomEvent(_ model.RoomCode, eventType model.EventType, _ any) {
	r.room = append(r.room, eventType)
}

func (r *recorder) RoomClosed(code model.RoomCode) {
	r.closed = append(r.closed, code)
}

// inline runs submitted tasks immediately on the caller's goroutine
type inline struct{}

func (inline) Submit(task Task) bool {
	task(context.Background())
	return true
}

type EngineSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	conns   *room.Connections
	out     *recorder
	engine  *Engine
	ctx     context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.conns = room.NewConnections()
	s.out = &recorder{}
	s.ctx = context.Background()

	cat, err := catalog.NewFromRegions(map[model.Region][]model.Entity{
		model.RegionEurope: {{Name: "France"}, {Name: "Spain"}, {Name: "Italy"}},
		model.RegionAsia:   {{Name: "Japan"}},
	}, s.random)
	s.Require().NoError(err)

	s.engine = New(Deps{
		Rooms:       room.NewRegistry(cat, 2, s.clock, s.random, logger),
		Connections: s.conns,
		Sessions:    game.New(cat, game.Config{RoundDelay: 5 * time.Second}, s.clock, logger),
		Limiter:     ratelimit.New(s.storage, s.clock, ratelimit.DefaultLimits(), logger),
		Catalog:     cat,
		Storage:     s.storage,
		Output:      s.out,
		Observers:   s.out,
		Executor:    inline{},
		Clock:       s.clock,
		Logger:      logger,
	})
}

func (s *EngineSuite) connect(conns ...model.ConnID) {
	for _, c := range conns {
		s.engine.Connect(s.ctx, c)
	}
}

// duel sets up host and guest in room DUEL01 for region europe
func (s *EngineSuite) duel() {
	s.connect("host", "guest")
	s.random.QueueString("DUEL01")
	s.engine.CreateRoom(s.ctx, "host", CreateRoomRequest{Region: "europe", MaxPlayers: 2, DisplayName: "Alice"})
	s.engine.JoinRoom(s.ctx, "guest", JoinRoomRequest{Code: "duel01", DisplayName: "Bob"})
	s.out.sent = nil
}

func (s *EngineSuite) types(conn model.ConnID) []model.EventType {
	var types []model.EventType
	for _, e := range s.out.sent {
		if e.conn == conn {
			types = append(types, e.typ)
		}
	}
	return types
}

func (s *EngineSuite) last(conn model.ConnID, typ model.EventType) any {
	for i := len(s.out.sent) - 1; i >= 0; i-- {
		if e := s.out.sent[i]; e.conn == conn && e.typ == typ {
			return e.payload
		}
	}
	s.FailNow("event not sent", "%s to %s", typ, conn)
	return nil
}

func (s *EngineSuite) TestConnectSendsRegions() {
	s.connect("a")

	init := s.last("a", model.EventInitData).(model.InitDataPayload)
	s.Equal(model.ConnID("a"), init.You)
	s.Require().Len(init.Regions, 3)
	s.Equal(model.RegionWorld, init.Regions[0].Name)
	s.Equal(4, init.Regions[0].Size)
}

func (s *EngineSuite) TestCreateAndJoin() {
	s.connect("host", "guest")
	s.random.QueueString("DUEL01")

	s.engine.CreateRoom(s.ctx, "host", CreateRoomRequest{Region: "europe", MaxPlayers: 2, DisplayName: "Alice"})
	created := s.last("host", model.EventRoomCreated).(model.RoomCreatedPayload)
	s.Equal(model.RoomCode("DUEL01"), created.Code)
	s.Equal(model.RegionEurope, created.Region)
	s.Equal(2, created.TotalRounds)

	s.engine.JoinRoom(s.ctx, "guest", JoinRoomRequest{Code: " duel01 ", DisplayName: "Bob"})
	joined := s.last("guest", model.EventJoinedRoom).(model.JoinedRoomPayload)
	s.Equal(model.ConnID("host"), joined.Host)
	s.Empty(s.last("guest", model.EventChatHistory).(model.ChatHistoryPayload).Messages)

	roster := s.last("host", model.EventRosterChanged).(model.RosterChangedPayload)
	s.True(roster.CanStart)
	s.Require().Len(roster.Players, 2)
	s.Equal("Alice", roster.Players[0].DisplayName)
	s.Equal("Bob", roster.Players[1].DisplayName)
}

func (s *EngineSuite) TestJoinErrors() {
	s.duel()
	s.connect("third")

	s.engine.JoinRoom(s.ctx, "third", JoinRoomRequest{Code: "NOPE"})
	s.Equal("room_not_found", s.last("third", model.EventJoinError).(model.ErrorPayload).Code)

	s.engine.JoinRoom(s.ctx, "third", JoinRoomRequest{Code: "DUEL01"})
	s.Equal("room_full", s.last("third", model.EventJoinError).(model.ErrorPayload).Code)

	s.engine.JoinRoom(s.ctx, "guest", JoinRoomRequest{Code: "DUEL01"})
	s.Equal("already_in_room", s.last("guest", model.EventJoinError).(model.ErrorPayload).Code)
}

func (s *EngineSuite) TestJoinStartedGameIsRejected() {
	s.connect("host", "guest", "late")
	s.random.QueueString("ROOM04")
	s.engine.CreateRoom(s.ctx, "host", CreateRoomRequest{Region: "europe", MaxPlayers: 4})
	s.engine.JoinRoom(s.ctx, "guest", JoinRoomRequest{Code: "ROOM04"})
	s.engine.StartGame(s.ctx, "host")

	s.engine.JoinRoom(s.ctx, "late", JoinRoomRequest{Code: "ROOM04"})
	s.Equal("game_already_started", s.last("late", model.EventJoinError).(model.ErrorPayload).Code)
}

func (s *EngineSuite) TestJoinRateLimited() {
	s.connect("a")
	for range 5 {
		s.engine.JoinRoom(s.ctx, "a", JoinRoomRequest{Code: "NOPE"})
	}
	s.engine.JoinRoom(s.ctx, "a", JoinRoomRequest{Code: "NOPE"})

	s.Equal("rate_limited", s.last("a", model.EventJoinError).(model.ErrorPayload).Code)
}

func (s *EngineSuite) TestCreatingAgainLeavesOldRoom() {
	s.duel()
	s.random.QueueString("SOLO01")

	s.engine.CreateRoom(s.ctx, "guest", CreateRoomRequest{Region: "asia"})

	snap, err := s.engine.RoomSnapshot("DUEL01")
	s.Require().NoError(err)
	s.Equal(1, snap.Players)
	code, _ := s.conns.RoomOf("guest")
	s.Equal(model.RoomCode("SOLO01"), code)
}

func (s *EngineSuite) TestFailedJoinKeepsCurrentGame() {
	s.duel()
	s.engine.StartGame(s.ctx, "host")
	s.connect("x", "y")
	s.random.QueueString("FULL01")
	s.engine.CreateRoom(s.ctx, "x", CreateRoomRequest{Region: "asia", MaxPlayers: 2})
	s.engine.JoinRoom(s.ctx, "y", JoinRoomRequest{Code: "FULL01"})

	s.engine.JoinRoom(s.ctx, "guest", JoinRoomRequest{Code: "NOPE99"})
	s.Equal("room_not_found", s.last("guest", model.EventJoinError).(model.ErrorPayload).Code)
	s.engine.JoinRoom(s.ctx, "guest", JoinRoomRequest{Code: "FULL01"})
	s.Equal("room_full", s.last("guest", model.EventJoinError).(model.ErrorPayload).Code)

	snap, err := s.engine.RoomSnapshot("DUEL01")
	s.Require().NoError(err)
	s.Equal(2, snap.Players)
	s.Equal(model.PhaseActive, snap.Phase)
	code, _ := s.conns.RoomOf("guest")
	s.Equal(model.RoomCode("DUEL01"), code)
	s.NotContains(s.types("host"), model.EventGameOver)
}

func (s *EngineSuite) TestFailedCreateKeepsCurrentRoom() {
	s.duel()
	for range 64 {
		s.random.QueueString("DUEL01")
	}

	s.engine.CreateRoom(s.ctx, "guest", CreateRoomRequest{Region: "asia"})

	s.Equal("code_exhausted", s.last("guest", model.EventError).(model.ErrorPayload).Code)
	snap, err := s.engine.RoomSnapshot("DUEL01")
	s.Require().NoError(err)
	s.Equal(2, snap.Players)
	code, _ := s.conns.RoomOf("guest")
	s.Equal(model.RoomCode("DUEL01"), code)
}

func (s *EngineSuite) TestNonHostCannotStart() {
	s.duel()

	s.engine.StartGame(s.ctx, "guest")

	s.Equal("not_host", s.last("guest", model.EventError).(model.ErrorPayload).Code)
	s.Empty(s.types("host"))
}

func (s *EngineSuite) TestEuropeDuel() {
	s.duel()

	s.engine.StartGame(s.ctx, "host")
	s.Equal([]model.EventType{model.EventGameStarted, model.EventNewRound}, s.types("guest"))
	round := s.last("guest", model.EventNewRound).(model.NewRoundPayload)
	s.Equal(1, round.Round)

	s.engine.SubmitCorrectGuess(s.ctx, "host")
	s.engine.SubmitCorrectGuess(s.ctx, "guest")

	result := s.last("guest", model.EventRoundResult).(model.RoundResultPayload)
	s.Require().NotNil(result.Winner)
	s.Equal(model.ConnID("host"), *result.Winner)
	s.False(result.IsFinal)
	s.Equal(1, result.Scoreboard[0].Score)
	s.Equal(0, result.Scoreboard[1].Score)
	s.Len(s.types("guest"), 3)

	s.clock.Advance(4 * time.Second)
	s.Len(s.types("guest"), 3)

	s.clock.Advance(time.Second)
	round = s.last("guest", model.EventNewRound).(model.NewRoundPayload)
	s.Equal(2, round.Round)
}

func (s *EngineSuite) TestBothExhaustedResolvesWithoutWinner() {
	s.duel()
	s.engine.StartGame(s.ctx, "host")

	s.engine.ReportExhausted(s.ctx, "host")
	s.Equal(model.EventPlayerEliminated, s.types("guest")[2])
	s.NotContains(s.types("host"), model.EventPlayerEliminated)

	s.engine.ReportExhausted(s.ctx, "guest")
	result := s.last("host", model.EventRoundResult).(model.RoundResultPayload)
	s.Nil(result.Winner)

	s.clock.Advance(5 * time.Second)
	s.Equal(2, s.last("host", model.EventNewRound).(model.NewRoundPayload).Round)
}

func (s *EngineSuite) TestFullGameIsRecorded() {
	s.duel()
	s.engine.StartGame(s.ctx, "host")

	s.engine.SubmitCorrectGuess(s.ctx, "guest")
	s.clock.Advance(5 * time.Second)
	s.engine.SubmitCorrectGuess(s.ctx, "guest")
	s.True(s.last("host", model.EventRoundResult).(model.RoundResultPayload).IsFinal)
	s.clock.Advance(5 * time.Second)

	over := s.last("host", model.EventGameOver).(model.GameOverPayload)
	s.Equal([]model.ConnID{"guest"}, over.Winners)
	s.False(over.Draw)

	history, err := s.engine.History(s.ctx, "duel01")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(2, history[0].Rounds)
	s.Equal([]model.ConnID{"guest"}, history[0].Winners)

	// Rematch once both vote
	s.engine.RequestRematch(s.ctx, "host")
	status := s.last("guest", model.EventRematchStatus).(model.RematchStatusPayload)
	s.Equal([]model.ConnID{"host"}, status.Votes)
	s.engine.RequestRematch(s.ctx, "guest")
	s.Equal(1, s.last("guest", model.EventNewRound).(model.NewRoundPayload).Round)
}

func (s *EngineSuite) TestHostDisconnectMidGame() {
	s.duel()
	s.engine.StartGame(s.ctx, "host")

	s.engine.Disconnect(s.ctx, "host")

	s.Equal(model.RoomCode("DUEL01"), s.last("guest", model.EventBecameHost).(model.BecameHostPayload).Code)
	over := s.last("guest", model.EventGameOver).(model.GameOverPayload)
	s.Equal([]model.ConnID{"guest"}, over.Winners)
	s.False(over.Draw)

	snap, err := s.engine.RoomSnapshot("DUEL01")
	s.Require().NoError(err)
	s.Equal(model.ConnID("guest"), snap.Host)
	s.Equal(model.PhaseGameOver, snap.Phase)
}

func (s *EngineSuite) TestFollowUpAfterRoomDeletedIsInert() {
	s.duel()
	s.engine.StartGame(s.ctx, "host")
	s.engine.SubmitCorrectGuess(s.ctx, "host")

	s.engine.Disconnect(s.ctx, "host")
	s.engine.Disconnect(s.ctx, "guest")
	s.Equal([]model.RoomCode{"DUEL01"}, s.out.closed)
	s.Equal(0, s.clock.PendingTimers())
	s.out.sent = nil

	s.NotPanics(func() { s.clock.Advance(10 * time.Second) })
	s.Empty(s.out.sent)
	s.Equal(0, s.clock.PendingTimers())
}

func (s *EngineSuite) TestActionsAfterDisconnectAreIgnored() {
	s.duel()
	s.engine.Disconnect(s.ctx, "guest")
	s.out.sent = nil

	s.engine.SubmitCorrectGuess(s.ctx, "guest")
	s.engine.SendChat(s.ctx, "guest", ChatRequest{Text: "hello"})
	s.engine.CreateRoom(s.ctx, "guest", CreateRoomRequest{})

	s.Empty(s.out.sent)
}

func (s *EngineSuite) TestChatIsBroadcastAndReplayed() {
	s.connect("host", "guest")
	s.random.QueueString("CHAT01")
	s.engine.CreateRoom(s.ctx, "host", CreateRoomRequest{Region: "europe", DisplayName: "Alice"})

	s.engine.SendChat(s.ctx, "host", ChatRequest{Text: "  <b>hi</b>  "})
	s.engine.SendChat(s.ctx, "host", ChatRequest{Text: "<>"})
	entry := s.last("host", model.EventNewChatMessage).(model.ChatEntry)
	s.Equal("Alice", entry.Sender)
	s.Equal("bhi/b", entry.Text)

	s.engine.JoinRoom(s.ctx, "guest", JoinRoomRequest{Code: "CHAT01"})
	history := s.last("guest", model.EventChatHistory).(model.ChatHistoryPayload)
	s.Require().Len(history.Messages, 1)
	s.Equal("bhi/b", history.Messages[0].Text)
}

func (s *EngineSuite) TestChatRateLimitIsSilent() {
	s.duel()
	for range 7 {
		s.engine.SendChat(s.ctx, "host", ChatRequest{Text: "spam"})
	}
	s.Len(s.types("guest"), 5)
	s.Empty(s.types("host")[5:])
}

func (s *EngineSuite) TestObserversSeeRoomEvents() {
	s.duel()
	s.out.room = nil

	s.engine.StartGame(s.ctx, "host")

	s.Equal([]model.EventType{model.EventGameStarted, model.EventNewRound}, s.out.room)
}

func (s *EngineSuite) TestReclaimRemovesAbandonedRooms() {
	s.duel()
	// Simulate connections that vanished without leaving
	s.conns.Disconnect("host")
	s.conns.Disconnect("guest")

	s.Equal(1, s.engine.Reclaim(s.ctx))
	s.Empty(s.engine.ListRooms())
	s.Equal([]model.RoomCode{"DUEL01"}, s.out.closed)
}

func (s *EngineSuite) TestResetRateLimits() {
	s.connect("a")
	s.engine.JoinRoom(s.ctx, "a", JoinRoomRequest{Code: "NOPE"})
	s.Positive(s.storage.WindowCount())

	s.engine.ResetRateLimits(s.ctx)
	s.Equal(0, s.storage.WindowCount())
}

func (s *EngineSuite) TestListRoomsAndSnapshot() {
	s.duel()

	rooms := s.engine.ListRooms()
	s.Require().Len(rooms, 1)
	s.Equal(model.RoomCode("DUEL01"), rooms[0].Code)
	s.Equal(2, rooms[0].Players)
	s.Equal(model.PhaseLobby, rooms[0].Phase)

	_, err := s.engine.RoomSnapshot("NOPE")
	s.ErrorIs(err, model.ErrRoomNotFound)

	snap, err := s.engine.RoomSnapshot("DUEL01")
	s.Require().NoError(err)
	s.True(snap.StartedAt.IsZero())
	s.Equal(s.clock.Now(), snap.Scoreboard[1].JoinedAt)

	s.clock.Advance(time.Minute)
	s.engine.StartGame(s.ctx, "host")
	snap, err = s.engine.RoomSnapshot("DUEL01")
	s.Require().NoError(err)
	s.Equal(s.clock.Now(), snap.StartedAt)

	connections, active := s.engine.Stats()
	s.Equal(2, connections)
	s.Equal(1, active)
}
