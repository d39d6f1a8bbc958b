// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir          string // base directory for the reports database
	Port             int
	DevMode          bool
	LogLevel         string
	Strategy         string // window preset label, e.g. "short_term"
	MinICSamples     int    // minimum defined IC observations per bundle
	BarsPath         string // CSV file with OHLCV bar history
	ScoringConfig    string // optional yaml file overriding scoring weights/thresholds
	EvaluateSchedule string // cron spec for periodic re-evaluation, empty disables
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FACTORLAB_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("FACTORLAB_PORT", 8011),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Strategy:         getEnv("FACTORLAB_STRATEGY", "short_term"),
		MinICSamples:     getEnvAsInt("FACTORLAB_MIN_IC_SAMPLES", 20),
		BarsPath:         getEnv("FACTORLAB_BARS", filepath.Join(absDataDir, "bars.csv")),
		ScoringConfig:    getEnv("FACTORLAB_SCORING_CONFIG", ""),
		EvaluateSchedule: getEnv("FACTORLAB_EVALUATE_SCHEDULE", ""),
	}

	if _, err := GetWindowConfig(cfg.Strategy); err != nil {
		return nil, err
	}
	return cfg, nil
}

// getEnv gets an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as an integer with a fallback.
func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsBool gets an environment variable as a boolean with a fallback.
func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
