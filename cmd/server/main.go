package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/skillmatch/internal/api"
	"github.com/mcoot/skillmatch/internal/config"
	"github.com/mcoot/skillmatch/internal/factory"
)

func main() {
	cfg, err := config.Load(context.Background())
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	app, err := factory.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if app.OutcomeFeed != nil {
		if err := app.OutcomeFeed.Start(ctx); err != nil {
			logger.Error("failed to start outcome feed", slog.String("error", err.Error()))
			_ = app.Close()
			os.Exit(1)
		}
	}

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		app.Scheduler.Run(ctx)
	}()

	server := api.NewServer(app.Router(), cfg.HTTP, logger)
	failed := false
	if err := server.Listen(); err != nil {
		logger.Error("failed to listen", slog.String("error", err.Error()))
		failed = true
		cancel()
	} else {
		logger.Info("server started",
			slog.String("addr", server.Addr()),
			slog.String("storage", cfg.Storage.Type),
			slog.Int("team_size", cfg.Matchmaking.TeamSize),
		)

		// Serve returns once a signal cancels ctx and requests have drained
		if err := server.Serve(ctx); err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			failed = true
		}
		cancel()
	}

	<-schedulerDone
	if err := app.Close(); err != nil {
		logger.Error("close error", slog.String("error", err.Error()))
		failed = true
	}

	logger.Info("server stopped")
	if failed {
		os.Exit(1)
	}
}
