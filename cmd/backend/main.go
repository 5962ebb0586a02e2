package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calibri-dashboard/internal/auth"
	"calibri-dashboard/internal/config"
	"calibri-dashboard/internal/middleware"
	"calibri-dashboard/internal/server"
	"calibri-dashboard/internal/store"
	"github.com/gin-gonic/gin"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	if err := config.LoadDotEnv(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	cfg, err := config.LoadBackendConfig()
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

func run(ctx context.Context, cfg config.BackendConfig, logger *slog.Logger) error {
	gin.SetMode(cfg.GinMode)

	st := store.New(cfg.DatabasePath)
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("closing database failed", slog.String("error", err.Error()))
		}
	}()
	if err := st.Init(); err != nil {
		return fmt.Errorf("opening %s: %w", cfg.DatabasePath, err)
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}
	created, err := st.EnsureAdmin(ctx, cfg.AdminEmail, hash, "Administrator")
	if err != nil {
		return err
	}
	if created {
		logger.Info("default admin created", slog.String("email", cfg.AdminEmail))
	}

	tokenCfg := auth.DefaultTokenConfig(cfg.MasterSecret)
	tokenCfg.Expiry = cfg.TokenExpiry

	limiter := middleware.NewRateLimiter(20, time.Minute)
	defer limiter.Stop()

	router := server.NewRouter(server.Deps{
		Store:       st,
		TokenConfig: tokenCfg,
		Logger:      logger,
		AuthLimiter: limiter,
	})

	srv := server.NewHTTPServer(cfg.Port, router)
	logger.Info("backend listening",
		slog.String("addr", srv.Addr),
		slog.String("database", cfg.DatabasePath),
		slog.Bool("tls", cfg.TLSCertFile != ""))
	return server.Run(ctx, srv, cfg.TLSCertFile, cfg.TLSKeyFile)
}
