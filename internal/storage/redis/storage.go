package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/geoduel/internal/model"
	"github.com/mcoot/geoduel/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Rate window operations

func (s *Storage) GetRateWindow(ctx context.Context, key model.RateKey) (model.RateWindow, bool, error) {
	data, err := s.client.Get(ctx, rateWindowKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.RateWindow{}, false, nil
		}
		return model.RateWindow{}, false, err
	}

	var window model.RateWindow
	if err := json.Unmarshal(data, &window); err != nil {
		return model.RateWindow{}, false, err
	}
	return window, true, nil
}

// SaveRateWindow stores the window with ttl so abandoned counters expire on their own
func (s *Storage) SaveRateWindow(ctx context.Context, key model.RateKey, window model.RateWindow, ttl time.Duration) error {
	data, err := json.Marshal(window)
	if err != nil {
		return err
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return s.client.Set(ctx, rateWindowKey(key), data, ttl).Err()
}

func (s *Storage) DeleteRateWindows(ctx context.Context, conn model.ConnID) error {
	return s.deleteMatching(ctx, rateWindowConnPattern(conn))
}

func (s *Storage) ClearRateWindows(ctx context.Context) error {
	return s.deleteMatching(ctx, rateWindowPattern())
}

// deleteMatching removes every key matching pattern using SCAN, never KEYS
func (s *Storage) deleteMatching(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, s.cfg.ScanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Game history operations

func (s *Storage) SaveGameSummary(ctx context.Context, summary *model.GameSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	key := historyKey(summary.Code)

	// Newest at the head; trim and refresh TTL in the same round trip
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, storage.MaxHistoryPerRoom-1)
	pipe.Expire(ctx, key, s.cfg.HistoryTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetGameSummaries(ctx context.Context, code model.RoomCode) ([]model.GameSummary, error) {
	values, err := s.client.LRange(ctx, historyKey(code), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	summaries := make([]model.GameSummary, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		var summary model.GameSummary
		if err := json.Unmarshal([]byte(values[i]), &summary); err != nil {
			continue // Skip invalid data
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
