// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all generation-run configuration.
type Config struct {
	// Generation bounds
	UserCount    int
	StartDate    time.Time
	EndDate      time.Time
	BatchSize    int
	TargetCount  int64
	RandomSeed   int64
	seedProvided bool

	// Output
	DatabaseURL string // PostgreSQL sink (optional; JSONL when unset)
	OutputDir   string // JSONL sink directory

	// Observability
	LogLevel    string
	LogFormat   string
	MetricsAddr string // prometheus listener, empty disables
}

// Defaults mirror the reference dataset run.
const (
	DefaultUserCount   = 50000
	DefaultBatchSize   = 10000
	DefaultTargetCount = 5_000_000
	DefaultStartDate   = "2023-01-01"
	DefaultEndDate     = "2025-07-31"
	DefaultOutputDir   = "./out"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	start, err := parseDate(getEnv("START_DATE", DefaultStartDate))
	if err != nil {
		return nil, fmt.Errorf("START_DATE: %w", err)
	}
	end, err := parseDate(getEnv("END_DATE", DefaultEndDate))
	if err != nil {
		return nil, fmt.Errorf("END_DATE: %w", err)
	}

	cfg := &Config{
		UserCount:    int(getEnvInt64("USER_COUNT", DefaultUserCount)),
		StartDate:    start,
		EndDate:      end,
		BatchSize:    int(getEnvInt64("BATCH_SIZE", DefaultBatchSize)),
		TargetCount:  getEnvInt64("TARGET_TRANSACTIONS", DefaultTargetCount),
		DatabaseURL:  os.Getenv("DATABASE_URL"), // Optional, JSONL output if not set
		OutputDir:    getEnv("OUTPUT_DIR", DefaultOutputDir),
		LogLevel:     getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:    getEnv("LOG_FORMAT", DefaultLogFormat),
		MetricsAddr:  os.Getenv("METRICS_ADDR"),
		seedProvided: os.Getenv("RANDOM_SEED") != "",
		RandomSeed:   getEnvInt64("RANDOM_SEED", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and coherent.
// Everything here fails before any generation begins.
func (c *Config) Validate() error {
	if !c.seedProvided {
		return fmt.Errorf("RANDOM_SEED is required: runs must be reproducible")
	}
	if c.UserCount <= 0 {
		return fmt.Errorf("USER_COUNT must be positive, got %d", c.UserCount)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.TargetCount <= 0 {
		return fmt.Errorf("TARGET_TRANSACTIONS must be positive, got %d", c.TargetCount)
	}
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("date range is empty: START_DATE %s after END_DATE %s",
			c.StartDate.Format(time.DateOnly), c.EndDate.Format(time.DateOnly))
	}
	return nil
}

// MarkSeedProvided lets tests build Config literals that pass Validate.
func (c *Config) MarkSeedProvided() { c.seedProvided = true }

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("want YYYY-MM-DD, got %q", v)
	}
	return t, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
