package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/storage"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

// Rate window tests

func (s *StorageSuite) TestSaveAndGetRateWindow() {
	key := model.RateKey{Conn: "conn-1", Action: model.ActionChat}
	window := model.RateWindow{Count: 2, ResetAt: time.Date(2024, 1, 1, 12, 0, 5, 0, time.UTC)}

	err := s.storage.SaveRateWindow(s.ctx, key, window, 5*time.Second)
	s.Require().NoError(err)

	got, ok, err := s.storage.GetRateWindow(s.ctx, key)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(window, got)
}

func (s *StorageSuite) TestGetRateWindowMissing() {
	_, ok, err := s.storage.GetRateWindow(s.ctx, model.RateKey{Conn: "nobody", Action: model.ActionChat})
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StorageSuite) TestDeleteRateWindowsOnlyAffectsConnection() {
	_ = s.storage.SaveRateWindow(s.ctx, model.RateKey{Conn: "a", Action: model.ActionChat}, model.RateWindow{Count: 1}, time.Second)
	_ = s.storage.SaveRateWindow(s.ctx, model.RateKey{Conn: "a", Action: model.ActionJoinRoom}, model.RateWindow{Count: 1}, time.Second)
	_ = s.storage.SaveRateWindow(s.ctx, model.RateKey{Conn: "b", Action: model.ActionChat}, model.RateWindow{Count: 1}, time.Second)

	s.Require().NoError(s.storage.DeleteRateWindows(s.ctx, "a"))
	s.Equal(1, s.storage.WindowCount())

	_, ok, _ := s.storage.GetRateWindow(s.ctx, model.RateKey{Conn: "b", Action: model.ActionChat})
	s.True(ok)
}

func (s *StorageSuite) TestClearRateWindows() {
	_ = s.storage.SaveRateWindow(s.ctx, model.RateKey{Conn: "a", Action: model.ActionChat}, model.RateWindow{Count: 1}, time.Second)
	s.Require().NoError(s.storage.ClearRateWindows(s.ctx))
	s.Equal(0, s.storage.WindowCount())
}

// Game history tests

func (s *StorageSuite) TestSaveAndGetGameSummaries() {
	first := &model.GameSummary{Code: "ABC123", Generation: 1, Winners: []model.ConnID{"a"}}
	second := &model.GameSummary{Code: "ABC123", Generation: 2, Draw: true}

	s.Require().NoError(s.storage.SaveGameSummary(s.ctx, first))
	s.Require().NoError(s.storage.SaveGameSummary(s.ctx, second))

	history, err := s.storage.GetGameSummaries(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(1, history[0].Generation)
	s.Equal(2, history[1].Generation)
}

func (s *StorageSuite) TestGetGameSummariesEmpty() {
	history, err := s.storage.GetGameSummaries(s.ctx, "NOPE")
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *StorageSuite) TestGameHistoryIsCapped() {
	for i := 1; i <= storage.MaxHistoryPerRoom+5; i++ {
		_ = s.storage.SaveGameSummary(s.ctx, &model.GameSummary{Code: "ABC123", Generation: i})
	}

	history, err := s.storage.GetGameSummaries(s.ctx, "ABC123")
	s.Require().NoError(err)
	s.Len(history, storage.MaxHistoryPerRoom)
	s.Equal(6, history[0].Generation)
}
