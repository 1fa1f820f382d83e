package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"STORAGE_DRIVER", "DB_PATH", "DATABASE_URL", "RATES_URL", "RATES_TTL", "MAX_RETRIES", "DEFAULT_CURRENCY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.StorageDriver != DriverSQLite {
		t.Errorf("StorageDriver = %q, want sqlite", cfg.StorageDriver)
	}
	if cfg.DBPath != "./data/ledgerwise.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.RatesTTL != 15*time.Minute {
		t.Errorf("RatesTTL = %v, want 15m", cfg.RatesTTL)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.DefaultCurrency != "EUR" {
		t.Errorf("DefaultCurrency = %q, want EUR", cfg.DefaultCurrency)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("RATES_TTL", "90s")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("DEFAULT_CURRENCY", " usd ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.StorageDriver != DriverPostgres {
		t.Errorf("StorageDriver = %q, want postgres", cfg.StorageDriver)
	}
	if cfg.RatesTTL != 90*time.Second {
		t.Errorf("RatesTTL = %v, want 90s", cfg.RatesTTL)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.DefaultCurrency != "USD" {
		t.Errorf("DefaultCurrency = %q, want USD", cfg.DefaultCurrency)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("MAX_RETRIES", "many")
	t.Setenv("RATES_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want fallback 3", cfg.MaxRetries)
	}
	if cfg.RatesTimeout != 5*time.Second {
		t.Errorf("RatesTimeout = %v, want fallback 5s", cfg.RatesTimeout)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "unknown driver",
			env:  map[string]string{"STORAGE_DRIVER": "mongo"},
		},
		{
			name: "postgres without url",
			env:  map[string]string{"STORAGE_DRIVER": "postgres", "DATABASE_URL": ""},
		},
		{
			name: "negative retries",
			env:  map[string]string{"STORAGE_DRIVER": "sqlite", "MAX_RETRIES": "-1"},
		},
		{
			name: "bad currency",
			env:  map[string]string{"STORAGE_DRIVER": "sqlite", "DEFAULT_CURRENCY": "EURO"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
