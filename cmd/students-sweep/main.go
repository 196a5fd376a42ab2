package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/students-e2e/internal/app"
	"github.com/samvad-hq/students-e2e/internal/config"
	"github.com/samvad-hq/students-e2e/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "students-sweep failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper, err := app.NewSweeper(cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize sweeper", "error", err.Error())
		return err
	}
	defer sweeper.Close()

	res, err := sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep (released %d of %d): %w", res.Released, res.Pending, err)
	}
	return nil
}
