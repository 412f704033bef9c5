package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/geoduel/internal/dependencies/mocks"
	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/testutil"
)

type fixedRegions struct{}

func (fixedRegions) Normalize(requested string) model.Region {
	if requested == string(model.RegionEurope) {
		return model.RegionEurope
	}
	return model.RegionWorld
}

type RegistrySuite struct {
	suite.Suite
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.registry = NewRegistry(fixedRegions{}, 5, s.clock, s.random, testutil.NopLogger())
}

func (s *RegistrySuite) createRoom(code string, host model.ConnID) *model.Room {
	s.random.QueueString(code)
	room, err := s.registry.Create(host, "Host", "europe", 4)
	s.Require().NoError(err)
	return room
}

// Create tests

func (s *RegistrySuite) TestCreateSucceeds() {
	room := s.createRoom("ABC234", "host")

	s.Equal(model.RoomCode("ABC234"), room.Code)
	s.Equal(model.ConnID("host"), room.Host)
	s.Equal(model.RegionEurope, room.Game.Region)
	s.Equal(model.PhaseLobby, room.Game.Phase)
	s.Equal(5, room.Game.TotalRounds)
	s.Equal(4, room.MaxPlayers)
	s.Require().Len(room.Players, 1)
	s.Equal("Host", room.Players[0].DisplayName)
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestCreateNormalizesRegionAndSize() {
	room, err := s.registry.Create("host", "", "atlantis", 99)
	s.Require().NoError(err)

	s.Equal(model.RegionWorld, room.Game.Region)
	s.Equal(model.MaxPlayersLimit, room.MaxPlayers)
	s.Equal("Player 1", room.Players[0].DisplayName)
}

func (s *RegistrySuite) TestCreateRetriesOnCollision() {
	s.createRoom("ABC234", "host-1")
	s.random.QueueString("ABC234")
	s.random.QueueString("XYZ789")

	room, err := s.registry.Create("host-2", "Other", "world", 2)
	s.Require().NoError(err)
	s.Equal(model.RoomCode("XYZ789"), room.Code)
}

func (s *RegistrySuite) TestCreateFailsWhenCodesExhausted() {
	s.createRoom("ABC234", "host-1")
	for range maxCodeAttempts {
		s.random.QueueString("ABC234")
	}

	_, err := s.registry.Create("host-2", "Other", "world", 2)
	s.ErrorIs(err, model.ErrCodeExhausted)
}

// Join tests

func (s *RegistrySuite) TestJoinSucceeds() {
	s.createRoom("ABC234", "host")

	room, err := s.registry.Join("  abc234 ", "guest", "Guest")
	s.Require().NoError(err)

	s.Require().Len(room.Players, 2)
	s.Equal(model.ConnID("guest"), room.Players[1].ConnID)
	s.Equal("Guest", room.Players[1].DisplayName)
}

func (s *RegistrySuite) TestJoinSanitizesName() {
	s.createRoom("ABC234", "host")

	room, err := s.registry.Join("ABC234", "guest", "<b>averyveryverylongname</b>")
	s.Require().NoError(err)
	s.Equal("baveryveryverylong", room.Players[1].DisplayName)
}

func (s *RegistrySuite) TestJoinDefaultsName() {
	s.createRoom("ABC234", "host")

	room, err := s.registry.Join("ABC234", "guest", "  ")
	s.Require().NoError(err)
	s.Equal("Player 2", room.Players[1].DisplayName)
}

func (s *RegistrySuite) TestDefaultNamesAreNotReused() {
	s.createRoom("ABC234", "host")
	_, err := s.registry.Join("ABC234", "guest-1", "")
	s.Require().NoError(err)
	_, err = s.registry.Leave("ABC234", "guest-1")
	s.Require().NoError(err)

	room, err := s.registry.Join("ABC234", "guest-2", "")
	s.Require().NoError(err)
	s.Equal("Player 3", room.Players[1].DisplayName)
}

func (s *RegistrySuite) TestCanJoinLeavesRoomUntouched() {
	s.createRoom("ABC234", "host")

	room, err := s.registry.CanJoin(" abc234", "guest")
	s.Require().NoError(err)
	s.Equal(model.RoomCode("ABC234"), room.Code)
	s.Len(room.Players, 1)
	s.Equal(1, room.Admitted)

	_, err = s.registry.CanJoin("ABC234", "host")
	s.ErrorIs(err, model.ErrAlreadyInRoom)
	_, err = s.registry.CanJoin("NOPE99", "guest")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestJoinFailsIfNotFound() {
	_, err := s.registry.Join("NOPE", "guest", "Guest")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestJoinFailsIfAlreadyInRoom() {
	s.createRoom("ABC234", "host")

	_, err := s.registry.Join("ABC234", "host", "Host")
	s.ErrorIs(err, model.ErrAlreadyInRoom)
}

func (s *RegistrySuite) TestJoinFailsIfFull() {
	s.random.QueueString("ABC234")
	_, err := s.registry.Create("host", "Host", "world", 2)
	s.Require().NoError(err)
	_, err = s.registry.Join("ABC234", "guest-1", "")
	s.Require().NoError(err)

	_, err = s.registry.Join("ABC234", "guest-2", "")
	s.ErrorIs(err, model.ErrRoomFull)
}

func (s *RegistrySuite) TestJoinFailsIfGameInProgress() {
	room := s.createRoom("ABC234", "host")
	room.Game.Phase = model.PhaseActive

	_, err := s.registry.Join("ABC234", "guest", "")
	s.ErrorIs(err, model.ErrGameAlreadyStarted)

	room.Game.Phase = model.PhaseRoundResolved
	_, err = s.registry.Join("ABC234", "guest", "")
	s.ErrorIs(err, model.ErrGameAlreadyStarted)
}

func (s *RegistrySuite) TestJoinAllowedAfterGameOver() {
	room := s.createRoom("ABC234", "host")
	room.Game.Phase = model.PhaseGameOver

	_, err := s.registry.Join("ABC234", "guest", "")
	s.NoError(err)
}

// Leave tests

func (s *RegistrySuite) TestLeaveRemovesPlayer() {
	s.createRoom("ABC234", "host")
	_, _ = s.registry.Join("ABC234", "guest", "")

	res, err := s.registry.Leave("ABC234", "guest")
	s.Require().NoError(err)

	s.False(res.Deleted)
	s.False(res.WasHost)
	s.Empty(res.NewHost)
	s.Equal(model.ConnID("guest"), res.Player.ConnID)
	s.Len(res.Room.Players, 1)
}

func (s *RegistrySuite) TestLeaveTransfersHostToEarliestJoiner() {
	s.createRoom("ABC234", "host")
	_, _ = s.registry.Join("ABC234", "first", "")
	_, _ = s.registry.Join("ABC234", "second", "")

	res, err := s.registry.Leave("ABC234", "host")
	s.Require().NoError(err)

	s.True(res.WasHost)
	s.Equal(model.ConnID("first"), res.NewHost)
	s.Equal(model.ConnID("first"), res.Room.Host)
}

func (s *RegistrySuite) TestLeaveDeletesEmptyRoom() {
	s.createRoom("ABC234", "host")

	res, err := s.registry.Leave("ABC234", "host")
	s.Require().NoError(err)

	s.True(res.Deleted)
	s.Equal(0, s.registry.Count())
	_, err = s.registry.Get("ABC234")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestLeaveFailsIfNotMember() {
	s.createRoom("ABC234", "host")

	_, err := s.registry.Leave("ABC234", "stranger")
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *RegistrySuite) TestLeaveDropsRematchVote() {
	room := s.createRoom("ABC234", "host")
	_, _ = s.registry.Join("ABC234", "guest", "")
	room.RematchVotes["guest"] = struct{}{}

	_, err := s.registry.Leave("ABC234", "guest")
	s.Require().NoError(err)
	s.Empty(room.RematchVotes)
}

// Reclaim and List tests

func (s *RegistrySuite) TestReclaimRemovesRoomsWithoutLiveOccupants() {
	s.createRoom("AAAAAA", "alive")
	s.createRoom("BBBBBB", "gone")

	removed := s.registry.Reclaim(func(conn model.ConnID) bool { return conn == "alive" })

	s.Equal([]model.RoomCode{"BBBBBB"}, removed)
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestListIsOldestFirst() {
	s.createRoom("BBBBBB", "first")
	s.clock.Advance(time.Second)
	s.createRoom("AAAAAA", "second")

	rooms := s.registry.List()
	s.Require().Len(rooms, 2)
	s.Equal(model.RoomCode("BBBBBB"), rooms[0].Code)
	s.Equal(model.RoomCode("AAAAAA"), rooms[1].Code)
}

func (s *RegistrySuite) TestNormalizeCode() {
	s.Equal(model.RoomCode("ABC234"), NormalizeCode(" abc234\t"))
	s.Equal(model.RoomCode("ABCDEFGHJK"), NormalizeCode("abcdefghjklmn"))
}

func (s *RegistrySuite) TestValidCode() {
	s.True(ValidCode("ABC234"))
	s.True(ValidCode(NormalizeCode("abc234")))
	s.False(ValidCode(""))
	s.False(ValidCode("AB-CD"))
	s.False(ValidCode("ÀBC"))
}
