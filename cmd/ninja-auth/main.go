package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/devsnb/ninja-authentication/internal/config"
	"github.com/devsnb/ninja-authentication/internal/server"
)

func main() {
	cfg, err := config.Load(slog.Default())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := server.NewLogger(cfg.SlogLevel())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
