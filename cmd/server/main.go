package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/welldanyogia/helpdesk-mailsync/internal/app"
	"github.com/welldanyogia/helpdesk-mailsync/internal/config"
	"github.com/welldanyogia/helpdesk-mailsync/internal/database"
	"github.com/welldanyogia/helpdesk-mailsync/internal/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.LogLevel)
	log.Info("Starting helpdesk mailsync server...")
	cfg.LogConfig(log)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := app.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return err
	}

	a, err := app.New(cfg, db, log)
	if err != nil {
		_ = database.Close(db)
		return err
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}
