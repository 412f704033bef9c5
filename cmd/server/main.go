package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mcoot/geoduel/internal/api"
	"github.com/mcoot/geoduel/internal/factory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	if err := newCmd(cfg).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *Config) error {
	logger := cfg.logger()
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(cfg.factory(logger))
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	defer app.Close()

	// The loop outlives the server so in-flight requests can drain
	loopCtx, stopLoop := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Run(loopCtx)
	}()

	server := api.NewServer(app.Handler, cfg.server(), logger, app.WSHub.CloseAll)
	logger.Info("server configured",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.storage),
		slog.Int("total_rounds", cfg.totalRounds),
		slog.Duration("round_delay", cfg.roundDelay))

	err = server.Run(ctx)

	stopLoop()
	wg.Wait()
	logger.Info("server stopped")
	return err
}
