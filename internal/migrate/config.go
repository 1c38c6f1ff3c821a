// Package migrate keeps the schema of the Simulator's reference template
// database current, using the same goose-backed migration runner the rest
// of this codebase's ancestry uses for its own schema.
package migrate

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config configures the migration runner.
type Config struct {
	DSN     string `env:"TEMPLATE_DB_DSN"`
	Dialect string `env:"TEMPLATE_DB_DIALECT"`

	Dir string `env:"TEMPLATE_DB_MIGRATIONS_DIR"`

	Timeout time.Duration `env:"TEMPLATE_DB_MIGRATION_TIMEOUT"`

	Logger *slog.Logger
}

// LoadConfig loads the migration runner configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DSN:     getEnvString("TEMPLATE_DB_DSN", ""),
		Dialect: getEnvString("TEMPLATE_DB_DIALECT", "postgres"),
		Dir:     getEnvString("TEMPLATE_DB_MIGRATIONS_DIR", "migrations/template"),
		Timeout: getEnvDuration("TEMPLATE_DB_MIGRATION_TIMEOUT", 5*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid template migration configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("template database DSN cannot be empty")
	}
	if c.Dialect == "" {
		return fmt.Errorf("template database dialect cannot be empty")
	}
	if c.Dir == "" {
		return fmt.Errorf("migrations directory cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("migration timeout must be greater than 0")
	}
	return nil
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
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

