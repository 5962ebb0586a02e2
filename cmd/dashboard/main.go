package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calibri-dashboard/internal/client"
	"calibri-dashboard/internal/config"
	"calibri-dashboard/internal/credential"
	"calibri-dashboard/internal/dashboard"
	"calibri-dashboard/internal/server"
	"github.com/gin-gonic/gin"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	if err := config.LoadDotEnv(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	cfg, err := config.LoadClientConfig()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	logLevel.Set(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ClientConfig, logger *slog.Logger) error {
	gin.SetMode(cfg.GinMode)

	tokens := credential.NewFileStore(cfg.TokenFile)
	backend := client.New(cfg.BackendURL, tokens, client.WithHTTPClient(&http.Client{Timeout: 15 * time.Second}))

	app, err := dashboard.New(dashboard.Options{
		Client:       backend,
		SettingsFile: cfg.SettingsFile,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	restoreCtx, cancelRestore := context.WithTimeout(ctx, 5*time.Second)
	if err := app.Auth().Restore(restoreCtx); err != nil {
		logger.Warn("restoring session failed", slog.String("error", err.Error()))
	} else if user, err := app.Auth().User(); err == nil {
		logger.Info("signed in", slog.String("email", user.Email), slog.Bool("admin", user.IsAdmin))
	}
	cancelRestore()

	srv := server.NewHTTPServer(cfg.Port, app.Router())
	logger.Info("dashboard listening",
		slog.String("addr", srv.Addr),
		slog.String("backend", cfg.BackendURL))
	if err := server.Run(ctx, srv, "", ""); err != nil {
		return fmt.Errorf("serving dashboard: %w", err)
	}
	return nil
}
