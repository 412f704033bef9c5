package storage

import (
	"context"
	"time"

	"github.com/mcoot/geoduel/internal/model"
)

// MaxHistoryPerRoom caps how many finished games are kept per room code
const MaxHistoryPerRoom = 20

// Storage defines the interface for the state that lives outside a room's
// in-memory session: rate-limit windows and finished-game records
type Storage interface {
	// Rate window operations
	GetRateWindow(ctx context.Context, key model.RateKey) (model.RateWindow, bool, error)
	SaveRateWindow(ctx context.Context, key model.RateKey, window model.RateWindow, ttl time.Duration) error
	DeleteRateWindows(ctx context.Context, conn model.ConnID) error
	ClearRateWindows(ctx context.Context) error

	// Game history operations, oldest first
	SaveGameSummary(ctx context.Context, summary *model.GameSummary) error
	GetGameSummaries(ctx context.Context, code model.RoomCode) ([]model.GameSummary, error)
}
