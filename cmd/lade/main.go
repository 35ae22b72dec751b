package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caliber-data/lade/internal/app"
	"github.com/caliber-data/lade/internal/config"
)

func main() {
	// Setup Structured Logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Root Context with cancellation on Interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("LADE Starting...")

	// Load Configuration
	cfg := config.Load()

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		slog.Error("fatal error encountered", "error", err)
		cancel()
	}

	// Grace period for cleanup
	time.Sleep(1 * time.Second)
	slog.Info("Shutting down...")
}
