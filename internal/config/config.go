// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mmynk/ledgerwise/internal/currency"
	"github.com/mmynk/ledgerwise/internal/models"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	// Storage
	StorageDriver string
	DBPath        string
	DatabaseURL   string

	// Logging
	LogLevel  string
	LogFormat string

	// Exchange rates
	RatesURL     string // empty means no remote provider
	RatesTTL     time.Duration
	RatesTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration

	DefaultCurrency models.Currency

	// MetricsFile is where the CLI writes metrics on exit. Empty disables it.
	MetricsFile string
}

// Load reads configuration from a .env file, if present, and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; real env vars take precedence.
	_ = godotenv.Load()

	cfg := &Config{
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverSQLite)),
		DBPath:        getEnv("DB_PATH", "./data/ledgerwise.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		RatesURL:     os.Getenv("RATES_URL"),
		RatesTTL:     getEnvDuration("RATES_TTL", 15*time.Minute),
		RatesTimeout: getEnvDuration("RATES_TIMEOUT", 5*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		DefaultCurrency: currency.Normalize(getEnv("DEFAULT_CURRENCY", "EUR")),

		MetricsFile: os.Getenv("METRICS_FILE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES cannot be negative")
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code, got %q", c.DefaultCurrency)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
