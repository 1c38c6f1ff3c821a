//go:build integration

package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cedarline/schema-propagation/internal/executor"
	"github.com/cedarline/schema-propagation/internal/registry"
)

// containerConnector satisfies executor.Connector against a real Postgres
// instance holding one real database per tenant, grounded the same way as
// internal/executor's own container fixture.
type containerConnector struct {
	host     string
	port     string
	user     string
	password string
}

func (c *containerConnector) Connect(ctx context.Context, database string) (*pgx.Conn, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.user, c.password, c.host, c.port, database)
	return pgx.Connect(ctx, dsn)
}

// setupEngineTestContainer starts a Postgres container, provisions count
// databases named prefix+i, and pre-creates a `widgets` table in every
// database except those whose index is in withoutTable, so a single shared
// artifact statement succeeds everywhere except the designated databases.
func setupEngineTestContainer(t *testing.T, prefix string, count int, withoutTable map[int]bool) *containerConnector {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("control"),
		tcpostgres.WithUsername("engine_test"),
		tcpostgres.WithPassword("engine_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		_ = pgContainer.Terminate(ctx)
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	adminPool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer adminPool.Close()

	connector := &containerConnector{host: host, port: port.Port(), user: "engine_test", password: "engine_test"}

	for i := 0; i < count; i++ {
		dbName := fmt.Sprintf("%s%d", prefix, i)
		_, err := adminPool.Exec(ctx, fmt.Sprintf(`CREATE DATABASE "%s"`, dbName))
		require.NoError(t, err, "failed to provision database %s", dbName)

		if withoutTable[i] {
			continue
		}

		conn, err := connector.Connect(ctx, dbName)
		require.NoError(t, err)
		_, err = conn.Exec(ctx, `CREATE TABLE widgets (id INT PRIMARY KEY)`)
		require.NoError(t, err)
		conn.Close(ctx)
	}

	return connector
}

// TestPropagate_PartialFailureBelowThreshold_RealPostgres covers §8 scenario
// 3: one broken database out of many stays below the error threshold, so
// the job completes with a mix of successful and failed outcomes rather
// than tripping the breaker.
func TestPropagate_PartialFailureBelowThreshold_RealPostgres(t *testing.T) {
	const total = 20
	broken := map[int]bool{0: true}

	connector := setupEngineTestContainer(t, "partial_", total, broken)
	exec := executor.New(connector, 1, 10*time.Millisecond, nil)
	eng := New(exec, registry.New(), 10.0, nil, nil)

	dbs := make([]string, total)
	for i := range dbs {
		dbs[i] = fmt.Sprintf("partial_%d", i)
	}

	sql := `INSERT INTO widgets (id) VALUES (1);`

	job, err := eng.Propagate(context.Background(), "20240101_000000", "deadbeefdeadbeef", sql, dbs, 5, false)
	require.NoError(t, err)

	snap := job.Snapshot()
	assert.Equal(t, registry.StatusCompleted, snap.Status)
	assert.False(t, snap.StopRequested)
	assert.Equal(t, total, snap.Completed)
	assert.Equal(t, total-len(broken), snap.Successful)
	assert.Equal(t, len(broken), snap.Failed)
}

// TestPropagate_BreakerTrips_RealPostgres covers §8 scenario 4: a failure
// rate that crosses the configured threshold after more than 10 units have
// completed requests a stop, leaving some units SKIPPED rather than
// dispatched.
func TestPropagate_BreakerTrips_RealPostgres(t *testing.T) {
	const total = 40
	broken := make(map[int]bool)
	for i := 0; i < total; i += 4 {
		broken[i] = true // every 4th database has no widgets table: fast, permanent failure
	}

	connector := setupEngineTestContainer(t, "trip_", total, broken)
	exec := executor.New(connector, 1, 10*time.Millisecond, nil)
	eng := New(exec, registry.New(), 5.0, nil, nil)

	dbs := make([]string, total)
	for i := range dbs {
		dbs[i] = fmt.Sprintf("trip_%d", i)
	}

	// Success databases sleep briefly so the faster permanent failures on
	// broken databases complete disproportionately early, tripping the
	// breaker with pending units still queued behind the concurrency gate.
	sql := `INSERT INTO widgets (id) VALUES (1); SELECT pg_sleep(0.05);`

	job, err := eng.Propagate(context.Background(), "20240101_000000", "deadbeefdeadbeef", sql, dbs, 4, false)
	require.NoError(t, err)

	snap := job.Snapshot()
	assert.Equal(t, registry.StatusStopped, snap.Status)
	assert.True(t, snap.StopRequested)
	assert.Equal(t, total, snap.Successful+snap.Failed+snap.Skipped)
	assert.Greater(t, snap.Skipped, 0)
}
