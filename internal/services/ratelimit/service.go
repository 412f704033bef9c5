package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/geoduel/internal/dependencies/clock"
	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/storage"
)

// Limit is the ceiling for one action within a fixed window
type Limit struct {
	Max    int
	Window time.Duration
}

// Limits maps each action kind to its ceiling
type Limits map[model.Action]Limit

// DefaultLimits returns the per-action ceilings
func DefaultLimits() Limits {
	return Limits{
		model.ActionCreateRoom: {Max: 3, Window: 60 * time.Second},
		model.ActionJoinRoom:   {Max: 5, Window: 60 * time.Second},
		model.ActionChat:       {Max: 5, Window: 5 * time.Second},
		model.ActionGameplay:   {Max: 20, Window: 10 * time.Second},
	}
}

// fallbackLimit applies to actions missing from Limits
var fallbackLimit = Limit{Max: 10, Window: 10 * time.Second}

// Service gates client actions with fixed-window counters keyed by
// (connection, action)
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	limits  Limits
	logger  *slog.Logger
}

// New creates a new rate limiter
func New(storage storage.Storage, clock clock.Clock, limits Limits, logger *slog.Logger) *Service {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Service{
		storage: storage,
		clock:   clock,
		limits:  limits,
		logger:  logger.With(slog.String("component", "ratelimit")),
	}
}

// LimitFor returns the ceiling applied to action
func (s *Service) LimitFor(action model.Action) Limit {
	if l, ok := s.limits[action]; ok {
		return l
	}
	return fallbackLimit
}

// Allow counts one attempt of action by conn and reports whether it may proceed.
// A storage failure lets the action through rather than locking players out.
func (s *Service) Allow(ctx context.Context, conn model.ConnID, action model.Action) bool {
	limit := s.LimitFor(action)
	key := model.RateKey{Conn: conn, Action: action}
	now := s.clock.Now()

	window, _, err := s.storage.GetRateWindow(ctx, key)
	if err != nil {
		s.logger.Warn("rate window lookup failed",
			slog.String("conn", string(conn)),
			slog.String("action", string(action)),
			slog.Any("error", err))
		return true
	}

	if now.After(window.ResetAt) {
		window = model.RateWindow{Count: 0, ResetAt: now.Add(limit.Window)}
	}

	if window.Count >= limit.Max {
		s.logger.Debug("rate limited",
			slog.String("conn", string(conn)),
			slog.String("action", string(action)),
			slog.Int("count", window.Count))
		return false
	}

	window.Count++
	if err := s.storage.SaveRateWindow(ctx, key, window, window.ResetAt.Sub(now)); err != nil {
		s.logger.Warn("rate window save failed",
			slog.String("conn", string(conn)),
			slog.String("action", string(action)),
			slog.Any("error", err))
	}
	return true
}

// Forget drops every window belonging to conn
func (s *Service) Forget(ctx context.Context, conn model.ConnID) error {
	return s.storage.DeleteRateWindows(ctx, conn)
}

// ResetAll clears every counter, bounding memory regardless of window expiry
func (s *Service) ResetAll(ctx context.Context) error {
	if err := s.storage.ClearRateWindows(ctx); err != nil {
		return err
	}
	s.logger.Debug("rate windows cleared")
	return nil
}
