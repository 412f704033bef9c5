package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/geoduel/internal/api"
	"github.com/mcoot/geoduel/internal/engine"
	"github.com/mcoot/geoduel/internal/factory"
	"github.com/mcoot/geoduel/internal/middleware"
	redisstorage "github.com/mcoot/geoduel/internal/storage/redis"
)

// Config is the server's command-line and environment configuration
type Config struct {
	bind                string
	port                int
	logFormat           string
	logLevel            string
	storage             string
	redisURL            string
	catalog             string
	totalRounds         int
	roundDelay          time.Duration
	reclaimInterval     time.Duration
	limitsResetInterval time.Duration
	httpRate            float64
	httpBurst           int
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.storage {
	case factory.StorageTypeMemory:
	case factory.StorageTypeRedis:
		if c.redisURL == "" {
			return errors.New("--redis-url is required when --storage=redis")
		}
	default:
		return fmt.Errorf("invalid storage (must be memory or redis): %q", c.storage)
	}
	if c.logFormat != "json" && c.logFormat != "text" {
		return fmt.Errorf("invalid log format (must be json or text): %q", c.logFormat)
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if c.totalRounds < 1 {
		return fmt.Errorf("total rounds must be positive: %d", c.totalRounds)
	}
	if c.roundDelay < 0 {
		return fmt.Errorf("round delay must not be negative: %s", c.roundDelay)
	}
	if c.reclaimInterval <= 0 || c.limitsResetInterval <= 0 {
		return errors.New("sweep intervals must be positive")
	}
	if c.httpRate < 0 || c.httpBurst < 0 {
		return errors.New("http rate and burst must not be negative")
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level: %q", c.logLevel)
	}
	return level, nil
}

// logger builds the process logger: JSON for production, tinted text for a terminal
func (c *Config) logger() *slog.Logger {
	level, _ := c.level()
	if c.logFormat == "text" {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.TimeOnly}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func (c *Config) factory(logger *slog.Logger) factory.Config {
	cfg := factory.Config{
		CatalogPath: c.catalog,
		Logger:      logger,
		StorageType: c.storage,
		Engine: engine.Config{
			TotalRounds:         c.totalRounds,
			RoundDelay:          c.roundDelay,
			ReclaimInterval:     c.reclaimInterval,
			LimitsResetInterval: c.limitsResetInterval,
		},
		Throttle: &middleware.ThrottleConfig{
			RequestsPerSecond: c.httpRate,
			Burst:             c.httpBurst,
			IdleTTL:           middleware.DefaultThrottleConfig().IdleTTL,
		},
	}
	if c.storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.redisURL
		cfg.RedisConfig = &redisCfg
	}
	return cfg
}

func (c *Config) server() api.ServerConfig {
	cfg := api.DefaultServerConfig()
	cfg.Host = c.bind
	cfg.Port = c.port
	return cfg
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("GEODUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "geoduel-server",
		Short:         "Real-time geography guessing rooms over websockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	defaults := engine.DefaultConfig()
	throttle := middleware.DefaultThrottleConfig()

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: GEODUEL_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: GEODUEL_PORT)")
	fs.StringVar(&cfg.logFormat, "log-format", "json", "log output format, json or text (env: GEODUEL_LOG_FORMAT)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "minimum log level (env: GEODUEL_LOG_LEVEL)")
	fs.StringVar(&cfg.storage, "storage", factory.StorageTypeMemory, "storage backend, memory or redis (env: GEODUEL_STORAGE)")
	fs.StringVar(&cfg.redisURL, "redis-url", "", "redis connection URL (env: GEODUEL_REDIS_URL)")
	fs.StringVar(&cfg.catalog, "catalog", "", "JSON file of regions to entities; defaults to the built-in countries (env: GEODUEL_CATALOG)")
	fs.IntVar(&cfg.totalRounds, "total-rounds", defaults.TotalRounds, "rounds per game (env: GEODUEL_TOTAL_ROUNDS)")
	fs.DurationVar(&cfg.roundDelay, "round-delay", defaults.RoundDelay, "pause between a round's result and the next round (env: GEODUEL_ROUND_DELAY)")
	fs.DurationVar(&cfg.reclaimInterval, "reclaim-interval", defaults.ReclaimInterval, "how often abandoned rooms are removed (env: GEODUEL_RECLAIM_INTERVAL)")
	fs.DurationVar(&cfg.limitsResetInterval, "limits-reset-interval", defaults.LimitsResetInterval, "how often rate limits are cleared (env: GEODUEL_LIMITS_RESET_INTERVAL)")
	fs.Float64Var(&cfg.httpRate, "http-rate", throttle.RequestsPerSecond, "HTTP requests per second per client IP, 0 to disable (env: GEODUEL_HTTP_RATE)")
	fs.IntVar(&cfg.httpBurst, "http-burst", throttle.Burst, "HTTP request burst per client IP (env: GEODUEL_HTTP_BURST)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
