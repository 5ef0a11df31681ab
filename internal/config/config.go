// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the application configuration.
type Config struct {
	DatabasePath    string
	LogLevel        string
	NtfyTopic       string
	RefreshInterval time.Duration
	RefreshWorkers  int
	EntryTimeout    time.Duration
	MinDelta        decimal.Decimal
	MinDeltaPct     decimal.Decimal
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/watch.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	interval, err := durationEnv("REFRESH_INTERVAL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	entryTimeout, err := durationEnv("ENTRY_TIMEOUT", 45*time.Second)
	if err != nil {
		return nil, err
	}
	workers, err := intEnv("REFRESH_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	minDelta, err := decimalEnv("MIN_DELTA", decimal.New(1, -2))
	if err != nil {
		return nil, err
	}
	minDeltaPct, err := decimalEnv("MIN_DELTA_PCT", decimal.Zero)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabasePath:    dbPath,
		LogLevel:        logLevel,
		NtfyTopic:       os.Getenv("NTFY_TOPIC"),
		RefreshInterval: interval,
		RefreshWorkers:  workers,
		EntryTimeout:    entryTimeout,
		MinDelta:        minDelta,
		MinDeltaPct:     minDeltaPct,
	}, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, raw)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, raw)
	}
	return n, nil
}

func decimalEnv(key string, def decimal.Decimal) (decimal.Decimal, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative, got %q", key, raw)
	}
	return d, nil
}
