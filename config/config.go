// Package config loads the settings shared by the command line and the
// server from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/costbasis"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Engine   EngineConfig

	Currency string // display only
	Workers  int    // parallel replays in batches, 0 means unbounded
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Addr             string
	CORSOrigins      []string
	RateLimit        float64 // requests per second
	RateBurst        int
	CacheTTL         time.Duration
	SnapshotSchedule string // cron spec, empty disables scheduled snapshots
}

// DatabaseConfig holds database-specific configuration.
type DatabaseConfig struct {
	Path string
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig holds the default accounting settings.
type EngineConfig struct {
	Method         costbasis.CostBasisMethod
	Oversell       costbasis.OversellPolicy
	Classification costbasis.Classification
}

// Load reads configuration from the .env file, if any, and the environment.
func Load() (*Config, error) {
	// a missing .env file is fine.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:             getEnv("CBS_ADDR", "localhost:5080"),
			CORSOrigins:      splitList(getEnv("CBS_CORS_ORIGINS", "http://localhost:3000")),
			SnapshotSchedule: getEnv("CBS_SNAPSHOT_SCHEDULE", ""),
		},
		Database: DatabaseConfig{
			Path: getEnv("CBS_DB_PATH", "./data/costbasis.db"),
		},
		Log: LogConfig{
			Level:  getEnv("CBS_LOG_LEVEL", "info"),
			Format: getEnv("CBS_LOG_FORMAT", "text"),
		},
		Currency: getEnv("CBS_CURRENCY", "USD"),
	}

	var err error
	if cfg.Engine.Method, err = costbasis.ParseCostBasisMethod(getEnv("CBS_METHOD", "FIFO")); err != nil {
		return nil, fmt.Errorf("CBS_METHOD: %w", err)
	}
	if cfg.Engine.Oversell, err = costbasis.ParseOversellPolicy(getEnv("CBS_OVERSELL", "reject")); err != nil {
		return nil, fmt.Errorf("CBS_OVERSELL: %w", err)
	}
	if cfg.Engine.Classification, err = costbasis.ParseClassification(getEnv("CBS_CLASSIFICATION", "")); err != nil {
		return nil, fmt.Errorf("CBS_CLASSIFICATION: %w", err)
	}
	if cfg.Server.RateLimit, err = strconv.ParseFloat(getEnv("CBS_RATE_LIMIT", "10"), 64); err != nil {
		return nil, fmt.Errorf("CBS_RATE_LIMIT: %w", err)
	}
	if cfg.Server.RateBurst, err = strconv.Atoi(getEnv("CBS_RATE_BURST", "20")); err != nil {
		return nil, fmt.Errorf("CBS_RATE_BURST: %w", err)
	}
	if cfg.Server.CacheTTL, err = time.ParseDuration(getEnv("CBS_CACHE_TTL", "5m")); err != nil {
		return nil, fmt.Errorf("CBS_CACHE_TTL: %w", err)
	}
	if cfg.Workers, err = strconv.Atoi(getEnv("CBS_WORKERS", "4")); err != nil {
		return nil, fmt.Errorf("CBS_WORKERS: %w", err)
	}
	return cfg, nil
}

// NewEngine returns an engine with the configured defaults.
func (c *Config) NewEngine(l *slog.Logger) *costbasis.Engine {
	return costbasis.NewEngine(
		costbasis.WithMethod(c.Engine.Method),
		costbasis.WithOversell(c.Engine.Oversell),
		costbasis.WithClassification(c.Engine.Classification),
		costbasis.WithLogger(l),
	)
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// splitList splits a comma separated list, dropping empty items.
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
