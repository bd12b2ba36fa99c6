// Package config handles loading and validating runtime configuration for the club API.
// Configuration values (like the database URL and API port) are read from environment variables
// rather than being hardcoded, so the same binary can run in dev, staging, and production
// without changing any code. Just swap the environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	// Embedded zone database so CLUB_TIMEZONE resolves inside minimal containers.
	_ "time/tzdata"

	// godotenv reads a .env file and loads its key=value pairs into the process environment.
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values for the application.
type Config struct {
	Port               string         // TCP port for the REST API (e.g., "8080")
	RealtimePort       string         // TCP port for the WebSocket notifier (e.g., "8081")
	DatabaseURL        string         // PostgreSQL connection string
	JWTSecret          string         // HMAC key used to verify bearer tokens from the auth provider
	Env                string         // "development", "staging", or "production"
	Location           *time.Location // Club timezone; match dates and time ranges are read in this zone
	AutoUpdateInterval time.Duration  // How often the background job completes finished matches
	MigrationsDir      string         // Directory holding the numbered .sql migration files
	LogLevel           slog.Level
	CORSOrigins        string // Comma-separated list of allowed origins, or "*"
}

// Load reads configuration from environment variables and returns a populated Config.
// It first tries to load a .env file for local development; a missing file is fine because
// in production the deployment platform sets real environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		RealtimePort:  getenv("REALTIME_PORT", "8081"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		Env:           getenv("ENV", "development"),
		MigrationsDir: getenv("MIGRATIONS_DIR", "migrations"),
		CORSOrigins:   getenv("CORS_ORIGINS", "*"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	for name, port := range map[string]string{"PORT": cfg.Port, "REALTIME_PORT": cfg.RealtimePort} {
		if err := validatePort(port); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	tz := getenv("CLUB_TIMEZONE", "Asia/Jakarta")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid CLUB_TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	interval, err := time.ParseDuration(getenv("AUTO_UPDATE_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_UPDATE_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("AUTO_UPDATE_INTERVAL must be positive, got %s", interval)
	}
	cfg.AutoUpdateInterval = interval

	level, err := parseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

// IsProduction reports whether the server runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func validatePort(s string) error {
	port, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
