package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Manager applies and inspects goose migrations against the template database.
type Manager struct {
	config *Config
	db     *sql.DB
	logger *slog.Logger
}

// NewManager opens a connection to the template database and returns a Manager.
func NewManager(cfg *Config) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open template database connection: %w", err)
	}

	return &Manager{config: cfg, db: db, logger: logger}, nil
}

// Close releases the underlying database connection.
func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) setDialect() error {
	if err := goose.SetDialect(m.config.Dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// Up applies all pending migrations to the template database.
func (m *Manager) Up(ctx context.Context) error {
	start := time.Now()
	if err := m.setDialect(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, m.db, m.config.Dir); err != nil {
		return fmt.Errorf("failed to apply template migrations: %w", err)
	}
	m.logger.Info("template migrations applied", "duration", time.Since(start))
	return nil
}

// UpTo applies migrations up to and including the given version.
func (m *Manager) UpTo(ctx context.Context, version int64) error {
	if err := m.setDialect(); err != nil {
		return err
	}
	if err := goose.UpToContext(ctx, m.db, m.config.Dir, version); err != nil {
		return fmt.Errorf("failed to apply template migrations up to version %d: %w", version, err)
	}
	m.logger.Info("template migrations applied", "version", version)
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Manager) Down(ctx context.Context) error {
	if err := m.setDialect(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, m.db, m.config.Dir); err != nil {
		return fmt.Errorf("failed to roll back template migration: %w", err)
	}
	m.logger.Info("template migration rolled back")
	return nil
}

// Status prints the current migration status through goose's own logger.
func (m *Manager) Status(ctx context.Context) error {
	if err := m.setDialect(); err != nil {
		return err
	}
	if err := goose.StatusContext(ctx, m.db, m.config.Dir); err != nil {
		return fmt.Errorf("failed to get template migration status: %w", err)
	}
	return nil
}

// Version returns the template database's current migration version.
func (m *Manager) Version(ctx context.Context) (int64, error) {
	if err := m.setDialect(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("failed to get template migration version: %w", err)
	}
	return version, nil
}

// HealthCheck verifies the template database connection is reachable.
func (m *Manager) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.db.PingContext(checkCtx); err != nil {
		return fmt.Errorf("template database connection failed: %w", err)
	}
	return nil
}
