package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(".env"); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	config, err := shared.ResolveConfig(shared.DefaultConfigPath)
	if err != nil {
		logger.Fatalf("configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	storage, kv, closeStorage, err := OpenStorage(ctx, config)
	if err != nil {
		logger.Fatalf("failed to open session storage: %v", err)
	}
	defer closeStorage()

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: shared.DefaultConfigPath,
		Storage:    storage,
		KV:         kv,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "mediadesk",
		Usage:    "Manage users and media on the platform from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
		case errors.Is(err, shared.ErrNotAuthenticated):
			logger.Error(err.Error())
			closeStorage()
			os.Exit(2)
		default:
			closeStorage()
			logger.Fatalf("application error: %v", err)
		}
	}
}
