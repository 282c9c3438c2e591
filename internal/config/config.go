// Package config loads the server configuration from the environment.
//
// SOURCES, in order of precedence:
//  1. real environment variables
//  2. a .env file (optional; never overrides 1)
//  3. the defaults below
//
// VARIABLES:
//
//	PORT                  8080
//	DB_PATH               data/remo.db
//	JWT_SECRET            (empty → sign-in disabled, everyone browses anonymously)
//	GITHUB_CLIENT_ID      (empty → GitHub login disabled)
//	GITHUB_CLIENT_SECRET
//	GITHUB_CALLBACK_URL   http://localhost:<PORT>/auth/github/callback
//	LOG_LEVEL             info (debug, info, warn, error)
//	COOKIE_SECURE         false
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultPort   = 8080
	DefaultDBPath = "data/remo.db"

	minSecretLength = 16
)

// Config is everything cmd/server needs to start.
type Config struct {
	Port     int
	DBPath   string
	LogLevel slog.Level

	JWTSecret    string
	CookieSecure bool

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// AuthEnabled reports whether sessions can be issued.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// GitHubEnabled reports whether the GitHub OAuth routes should be mounted.
func (c Config) GitHubEnabled() bool {
	return c.AuthEnabled() && c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Load reads envFile (if it exists) into the environment and builds a
// validated Config. An empty envFile means ".env".
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading %s: %w", envFile, err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Tests pass a map-backed
// getenv instead of touching the process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:               DefaultPort,
		DBPath:             DefaultDBPath,
		LogLevel:           slog.LevelInfo,
		JWTSecret:          getenv("JWT_SECRET"),
		GitHubClientID:     getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  getenv("GITHUB_CALLBACK_URL"),
	}

	if raw := getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return Config{}, fmt.Errorf("config: PORT must be 1-65535, got %q", raw)
		}
		cfg.Port = port
	}

	if raw := getenv("DB_PATH"); raw != "" {
		cfg.DBPath = raw
	}

	if raw := getenv("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
			return Config{}, fmt.Errorf("config: LOG_LEVEL: %w", err)
		}
	}

	if raw := getenv("COOKIE_SECURE"); raw != "" {
		secure, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: COOKIE_SECURE must be a boolean, got %q", raw)
		}
		cfg.CookieSecure = secure
	}

	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < minSecretLength {
		return Config{}, fmt.Errorf("config: JWT_SECRET must be at least %d characters", minSecretLength)
	}

	if (cfg.GitHubClientID == "") != (cfg.GitHubClientSecret == "") {
		return Config{}, errors.New("config: GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together")
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}
