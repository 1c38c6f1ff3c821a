package executor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/cedarline/schema-propagation/internal/config"
)

// PeerConnector opens connections to peer databases, preferring the pooled
// endpoint and falling back to the direct endpoint only when explicitly
// enabled in settings.
type PeerConnector struct {
	settings *config.Settings
}

// NewPeerConnector creates a PeerConnector bound to settings.
func NewPeerConnector(settings *config.Settings) *PeerConnector {
	return &PeerConnector{settings: settings}
}

// Connect opens a connection to database, applying the configured statement
// timeout as a connection-level runtime parameter.
func (c *PeerConnector) Connect(ctx context.Context, database string) (*pgx.Conn, error) {
	conn, err := c.connectTo(ctx, c.settings.PooledDSN(database))
	if err == nil {
		return conn, nil
	}

	if !c.settings.Pooler.AllowDirectFallback {
		return nil, fmt.Errorf("pooled connection to %s failed: %w", database, err)
	}

	directConn, directErr := c.connectTo(ctx, c.settings.DirectDSN(database))
	if directErr != nil {
		return nil, fmt.Errorf("pooled connection failed (%v) and direct fallback also failed: %w", err, directErr)
	}
	return directConn, nil
}

func (c *PeerConnector) connectTo(ctx context.Context, dsn string) (*pgx.Conn, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if c.settings.Propagation.StatementTimeout > 0 {
		ms := strconv.FormatInt(c.settings.Propagation.StatementTimeout.Milliseconds(), 10)
		connConfig.RuntimeParams["statement_timeout"] = ms
	}

	return pgx.ConnectConfig(ctx, connConfig)
}
