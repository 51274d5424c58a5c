package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Store backends supported by the ledger service.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration. It is loaded once at startup
// and passed explicitly to the components that need it; there is no global
// instance.
type Config struct {
	// HTTP server
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Store backend: "postgres" (serializable transactions) or "memory"
	// (single-writer local snapshots).
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// Game defaults, applied to newly created games.
	InitialCapital   int64   `env:"INITIAL_CAPITAL" envDefault:"15000"`
	StartBonusAmount int64   `env:"START_BONUS_AMOUNT" envDefault:"2000"`
	LoanInterestRate float64 `env:"LOAN_INTEREST_RATE" envDefault:"0.10"`

	// MaxConflictRetries bounds how many times a submission is re-run after
	// a serialization conflict before it is surfaced as a failure.
	MaxConflictRetries int `env:"MAX_CONFLICT_RETRIES" envDefault:"5"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
}

// Load parses configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.StoreBackend != BackendPostgres && cfg.StoreBackend != BackendMemory {
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == BackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("INITIAL_CAPITAL must be positive, got %d", cfg.InitialCapital)
	}
	if cfg.StartBonusAmount <= 0 {
		return nil, fmt.Errorf("START_BONUS_AMOUNT must be positive, got %d", cfg.StartBonusAmount)
	}
	if cfg.LoanInterestRate < 0 || cfg.LoanInterestRate > 1 {
		return nil, fmt.Errorf("LOAN_INTEREST_RATE must be in [0,1], got %g", cfg.LoanInterestRate)
	}
	if cfg.MaxConflictRetries < 0 {
		return nil, fmt.Errorf("MAX_CONFLICT_RETRIES must not be negative, got %d", cfg.MaxConflictRetries)
	}

	return cfg, nil
}
