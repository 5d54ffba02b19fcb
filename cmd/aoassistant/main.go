package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/0xcro3dile/ao-assistant/internal/cli"
	"github.com/0xcro3dile/ao-assistant/internal/config"
)

func main() {
	// Logs go to stderr; stdout belongs to command output.
	level := slog.LevelWarn
	if cfg, err := config.Load(); err == nil {
		level = cfg.SlogLevel()
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config errors are reported by the first command that needs the App.
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
