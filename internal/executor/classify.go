package executor

import (
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cedarline/schema-propagation/internal/database/postgres"
)

// classify converts a raw driver error into the centralized DatabaseError
// taxonomy so retryable/permanent classification is keyed on SQLSTATE in one
// place, shared with the pool's own retry logic.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return postgres.NewDatabaseError(pgErr.Code, pgErr.Message).
			WithDetails(pgErr.Severity, pgErr.Detail, pgErr.Hint, strconv.Itoa(int(pgErr.Position)))
	}

	return err
}

// isRetryable reports whether err should be retried: connection resets,
// serialization failures, and deadlocks are retried; syntax, permission,
// and constraint errors are not.
func isRetryable(err error) bool {
	return postgres.IsRetryable(classify(err))
}
