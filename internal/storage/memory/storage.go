package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	windows   map[model.RateKey]model.RateWindow
	summaries map[model.RoomCode][]model.GameSummary
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		windows:   make(map[model.RateKey]model.RateWindow),
		summaries: make(map[model.RoomCode][]model.GameSummary),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Rate window operations

func (s *Storage) GetRateWindow(ctx context.Context, key model.RateKey) (model.RateWindow, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.windows[key]
	return w, ok, nil
}

// SaveRateWindow stores the window. Expiry is left to the limiter and the
// periodic clear, so ttl is ignored.
func (s *Storage) SaveRateWindow(ctx context.Context, key model.RateKey, window model.RateWindow, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[key] = window
	return nil
}

func (s *Storage) DeleteRateWindows(ctx context.Context, conn model.ConnID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.windows {
		if key.Conn == conn {
			delete(s.windows, key)
		}
	}
	return nil
}

func (s *Storage) ClearRateWindows(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = make(map[model.RateKey]model.RateWindow)
	return nil
}

// WindowCount returns the number of stored windows
func (s *Storage) WindowCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.windows)
}

// Game history operations

func (s *Storage) SaveGameSummary(ctx context.Context, summary *model.GameSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.summaries[summary.Code], *summary)
	if len(history) > storage.MaxHistoryPerRoom {
		history = history[len(history)-storage.MaxHistoryPerRoom:]
	}
	s.summaries[summary.Code] = history
	return nil
}

func (s *Storage) GetGameSummaries(ctx context.Context, code model.RoomCode) ([]model.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.GameSummary{}, s.summaries[code]...), nil
}
