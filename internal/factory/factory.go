package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/geoduel/internal/api"
	apimiddleware "github.com/mcoot/geoduel/internal/api/middleware"
	"github.com/mcoot/geoduel/internal/dependencies/clock"
	"github.com/mcoot/geoduel/internal/dependencies/random"
	"github.com/mcoot/geoduel/internal/engine"
	"github.com/mcoot/geoduel/internal/middleware"
	"github.com/mcoot/geoduel/internal/services/catalog"
	"github.com/mcoot/geoduel/internal/services/game"
	"github.com/mcoot/geoduel/internal/services/ratelimit"
	"github.com/mcoot/geoduel/internal/services/room"
	"github.com/mcoot/geoduel/internal/storage"
	"github.com/mcoot/geoduel/internal/storage/memory"
	redisstorage "github.com/mcoot/geoduel/internal/storage/redis"
	"github.com/mcoot/geoduel/internal/web/sse"
	"github.com/mcoot/geoduel/internal/web/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Catalog     *catalog.Service
	Rooms       *room.Registry
	Connections *room.Connections
	Sessions    *game.Service
	Limiter     *ratelimit.Service

	// Event loop and the engine it drives
	Loop   *engine.Loop
	Engine *engine.Engine

	// Transport
	WSHub      *ws.Hub
	HubManager *sse.HubManager
	Throttle   *middleware.Throttle
	Handler    http.Handler

	config engine.Config
	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// CatalogPath is a JSON file of regions to entities (optional)
	// If empty, the embedded country list is used
	CatalogPath string
	// Engine holds game and sweep settings (optional)
	// Zero fields take engine.DefaultConfig() values
	Engine engine.Config
	// Limits overrides the per-action rate limits (optional)
	Limits ratelimit.Limits
	// Throttle sets the per-IP HTTP throttle (optional)
	// If nil, middleware.DefaultThrottleConfig() is used
	Throttle *middleware.ThrottleConfig
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	cat, err := loadCatalog(cfg.CatalogPath, rnd)
	if err != nil {
		closeStorage(store)
		return nil, err
	}

	throttle := middleware.DefaultThrottleConfig()
	if cfg.Throttle != nil {
		throttle = *cfg.Throttle
	}

	return newWithDependencies(store, clk, rnd, cat, cfg.Engine, cfg.Limits, throttle, logger), nil
}

func loadCatalog(path string, rnd random.Random) (*catalog.Service, error) {
	if path == "" {
		return catalog.New(rnd)
	}
	return catalog.LoadFromFile(path, rnd)
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	cat *catalog.Service,
	engineCfg engine.Config,
	limits ratelimit.Limits,
	throttleCfg middleware.ThrottleConfig,
	logger *slog.Logger,
) *App {
	engineCfg = engineCfg.WithDefaults()

	// Create services
	rooms := room.NewRegistry(cat, engineCfg.TotalRounds, clk, rnd, logger)
	connections := room.NewConnections()
	sessions := game.New(cat, game.Config{RoundDelay: engineCfg.RoundDelay}, clk, logger)
	limiter := ratelimit.New(store, clk, limits, logger)

	// Outputs exist before the engine so it can publish through them
	loop := engine.NewLoop(engineCfg.QueueSize, logger)
	wsHub := ws.NewHub(logger)
	hubManager := sse.NewHubManager(logger)

	eng := engine.New(engine.Deps{
		Rooms:       rooms,
		Connections: connections,
		Sessions:    sessions,
		Limiter:     limiter,
		Catalog:     cat,
		Storage:     store,
		Output:      wsHub,
		Observers:   hubManager,
		Executor:    loop,
		Clock:       clk,
		Logger:      logger,
	})

	throttle := apimiddleware.Throttle(throttleCfg)
	handler := api.NewRouter(api.RouterConfig{
		Logger:     logger,
		Engine:     eng,
		Loop:       loop,
		HubManager: hubManager,
		WebSocket:  ws.NewHandler(wsHub, eng, loop, logger),
		Throttle:   throttle,
	})

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Catalog:     cat,
		Rooms:       rooms,
		Connections: connections,
		Sessions:    sessions,
		Limiter:     limiter,
		Loop:        loop,
		Engine:      eng,
		WSHub:       wsHub,
		HubManager:  hubManager,
		Throttle:    throttle,
		Handler:     handler,
		config:      engineCfg,
		logger:      logger.With(slog.String("component", "app")),
	}
}

// Run drives the event loop and the periodic sweeps until ctx is cancelled
func (a *App) Run(ctx context.Context) {
	go a.sweep(ctx)
	a.Loop.Run(ctx)
}

func (a *App) sweep(ctx context.Context) {
	reclaim := time.NewTicker(a.config.ReclaimInterval)
	defer reclaim.Stop()
	reset := time.NewTicker(a.config.LimitsResetInterval)
	defer reset.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reclaim.C:
			a.Reclaim()
		case <-reset.C:
			a.ResetLimits()
		}
	}
}

// Reclaim removes abandoned rooms, observer hubs nobody is watching and
// idle throttle entries
func (a *App) Reclaim() {
	a.Loop.Submit(func(ctx context.Context) {
		if n := a.Engine.Reclaim(ctx); n > 0 {
			a.logger.Info("reclaimed abandoned rooms", slog.Int("count", n))
		}
	})
	if n := a.HubManager.CleanupEmptyHubs(); n > 0 {
		a.logger.Debug("removed idle observer hubs", slog.Int("count", n))
	}
	a.Throttle.Sweep()
}

// ResetLimits clears every rate-limit window on the loop
func (a *App) ResetLimits() {
	a.Loop.Submit(a.Engine.ResetRateLimits)
}

// Close disconnects every session and releases storage
func (a *App) Close() {
	a.WSHub.CloseAll()
	closeStorage(a.Storage)
}

func closeStorage(store storage.Storage) {
	if c, ok := store.(io.Closer); ok {
		_ = c.Close()
	}
}
