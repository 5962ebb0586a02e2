package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

// ClientConfig configures the dashboard server and the command-line client.
type ClientConfig struct {
	Port         int
	BackendURL   string
	TokenFile    string
	SettingsFile string
	GinMode      string
	LogLevel     slog.Level
}

// BackendConfig configures the reference backend.
type BackendConfig struct {
	Port          int
	MasterSecret  string
	DatabasePath  string
	TokenExpiry   time.Duration
	AdminEmail    string
	AdminPassword string
	GinMode       string
	TLSCertFile   string
	TLSKeyFile    string
	LogLevel      slog.Level
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

func LoadClientConfig() (ClientConfig, error) {
	return LoadClientConfigFromEnv(osEnv{})
}

func LoadClientConfigFromEnv(env Env) (ClientConfig, error) {
	cfg := ClientConfig{
		Port:       3000,
		BackendURL: "http://localhost:8000",
		GinMode:    "release",
		LogLevel:   slog.LevelInfo,
	}

	port, err := parsePort(env, cfg.Port)
	if err != nil {
		return ClientConfig{}, err
	}
	cfg.Port = port

	if raw := env.Getenv("BACKEND_URL"); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ClientConfig{}, fmt.Errorf("invalid BACKEND_URL")
		}
		cfg.BackendURL = strings.TrimRight(raw, "/")
	}

	home := env.Getenv("HOME")
	cfg.TokenFile = env.Getenv("TOKEN_FILE")
	if cfg.TokenFile == "" {
		cfg.TokenFile = filepath.Join(home, ".calibri", "token.json")
	}
	cfg.SettingsFile = env.Getenv("SETTINGS_FILE")
	if cfg.SettingsFile == "" {
		cfg.SettingsFile = filepath.Join(home, ".calibri", "settings.yaml")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	level, err := parseLogLevel(env)
	if err != nil {
		return ClientConfig{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func LoadBackendConfig() (BackendConfig, error) {
	return LoadBackendConfigFromEnv(osEnv{})
}

func LoadBackendConfigFromEnv(env Env) (BackendConfig, error) {
	cfg := BackendConfig{
		Port:          8000,
		DatabasePath:  "emg_database.db",
		TokenExpiry:   30 * 24 * time.Hour,
		AdminEmail:    "admin@admin.com",
		AdminPassword: "admin123",
		GinMode:       "release",
		LogLevel:      slog.LevelInfo,
	}

	port, err := parsePort(env, cfg.Port)
	if err != nil {
		return BackendConfig{}, err
	}
	cfg.Port = port

	cfg.MasterSecret = env.Getenv("MASTER_SECRET")
	if cfg.MasterSecret == "" {
		return BackendConfig{}, fmt.Errorf("MASTER_SECRET is required")
	}

	if raw := env.Getenv("DATABASE_PATH"); raw != "" {
		cfg.DatabasePath = raw
	}

	if raw := env.Getenv("TOKEN_EXPIRY_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return BackendConfig{}, fmt.Errorf("invalid TOKEN_EXPIRY_SECONDS")
		}
		cfg.TokenExpiry = time.Duration(seconds) * time.Second
	}

	if raw := env.Getenv("ADMIN_EMAIL"); raw != "" {
		cfg.AdminEmail = raw
	}
	if raw := env.Getenv("ADMIN_PASSWORD"); raw != "" {
		cfg.AdminPassword = raw
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return BackendConfig{}, fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	level, err := parseLogLevel(env)
	if err != nil {
		return BackendConfig{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func parsePort(env Env, def int) (int, error) {
	raw := env.Getenv("PORT")
	if raw == "" {
		return def, nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid PORT")
	}
	return port, nil
}

func parseLogLevel(env Env) (slog.Level, error) {
	raw := env.Getenv("LOG_LEVEL")
	if raw == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL")
	}
	return level, nil
}
