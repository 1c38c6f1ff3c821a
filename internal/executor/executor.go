// Package executor implements the DB Executor: applying one SQL artifact to
// one tenant database, with bookkeeping, idempotency, and retry.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// Status is the terminal outcome of applying an artifact to one database.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusSkipped Status = "SKIPPED"
	StatusFailed  Status = "FAILED"
)

// Outcome is the result of one apply.
type Outcome struct {
	Database   string
	Status     Status
	Error      string
	DurationMs int64
}

const bookkeepingDDL = `CREATE TABLE IF NOT EXISTS schema_propagation_version (
	version_id VARCHAR(50) PRIMARY KEY,
	applied_at TIMESTAMPTZ DEFAULT NOW(),
	checksum VARCHAR(32)
)`

// Connector opens a connection to a named peer database, preferring the
// pooled endpoint and falling back to the direct endpoint only if enabled.
type Connector interface {
	Connect(ctx context.Context, database string) (*pgx.Conn, error)
}

// Executor applies versioned SQL artifacts to peer databases.
type Executor struct {
	connector  Connector
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// New creates an Executor. baseDelay defaults to 1s if zero.
func New(connector Connector, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Executor {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{connector: connector, maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

// Apply runs the DB Executor algorithm against one database: bookkeeping
// DDL, idempotency probe, then (unless dry_run) a transactional apply with
// retry. cancelSignal is consulted once, before dispatch; a unit that has
// been dispatched runs to completion, retries included.
func (e *Executor) Apply(ctx context.Context, database, versionID, checksum, sql string, dryRun bool, cancelSignal func() bool) Outcome {
	start := time.Now()
	outcome := Outcome{Database: database}

	if cancelSignal != nil && cancelSignal() {
		outcome.Status = StatusSkipped
		outcome.Error = "cancelled before dispatch"
		outcome.DurationMs = time.Since(start).Milliseconds()
		return outcome
	}

	conn, err := e.connector.Connect(ctx, database)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Error = fmt.Sprintf("connect failed: %v", err)
		outcome.DurationMs = time.Since(start).Milliseconds()
		return outcome
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, bookkeepingDDL); err != nil {
		outcome.Status = StatusFailed
		outcome.Error = fmt.Sprintf("bookkeeping DDL failed: %v", err)
		outcome.DurationMs = time.Since(start).Milliseconds()
		return outcome
	}

	var exists int
	probeErr := conn.QueryRow(ctx, `SELECT 1 FROM schema_propagation_version WHERE version_id = $1`, versionID).Scan(&exists)
	if probeErr == nil {
		outcome.Status = StatusSkipped
		outcome.Error = "already applied"
		outcome.DurationMs = time.Since(start).Milliseconds()
		return outcome
	}
	if probeErr != pgx.ErrNoRows {
		outcome.Status = StatusFailed
		outcome.Error = fmt.Sprintf("idempotency probe failed: %v", probeErr)
		outcome.DurationMs = time.Since(start).Milliseconds()
		return outcome
	}

	if dryRun {
		outcome.Status = StatusSuccess
		outcome.DurationMs = time.Since(start).Milliseconds()
		return outcome
	}

	// Past this point the unit has been dispatched: it runs to completion
	// even if cancellation arrives mid-retry, per the no-mid-statement-
	// interrupt rule.
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		err := e.applyOnce(ctx, conn, versionID, checksum, sql)
		if err == nil {
			outcome.Status = StatusSuccess
			outcome.DurationMs = time.Since(start).Milliseconds()
			return outcome
		}

		if !isRetryable(err) || attempt == e.maxRetries {
			outcome.Status = StatusFailed
			outcome.Error = err.Error()
			outcome.DurationMs = time.Since(start).Milliseconds()
			return outcome
		}

		delay := e.baseDelay * time.Duration(1<<uint(attempt-1))
		e.logger.Warn("retrying apply", "database", database, "version_id", versionID, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			outcome.Status = StatusFailed
			outcome.Error = ctx.Err().Error()
			outcome.DurationMs = time.Since(start).Milliseconds()
			return outcome
		}
	}

	outcome.Status = StatusFailed
	outcome.Error = "exhausted retries"
	outcome.DurationMs = time.Since(start).Milliseconds()
	return outcome
}

func (e *Executor) applyOnce(ctx context.Context, conn *pgx.Conn, versionID, checksum, sql string) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("artifact apply failed: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO schema_propagation_version (version_id, checksum) VALUES ($1, $2)`, versionID, checksum); err != nil {
		return fmt.Errorf("version insert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	return nil
}
