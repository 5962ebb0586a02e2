package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"calibri-dashboard/internal/config"
)

func main() {
	var logLevel slog.LevelVar
	logLevel.Set(slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}))

	if err := config.LoadDotEnv(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	cfg, err := config.LoadClientConfig()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	if os.Getenv("LOG_LEVEL") != "" {
		logLevel.Set(cfg.LogLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)

		cancel()
		os.Exit(1)
	}
}
