package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupConn spins up a disposable ClickHouse container, creates the schema
// and returns a connection. Requires a Docker daemon; skip with -short.
func setupConn(t *testing.T) *Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS token_analyses (
			token_address         String,
			total_holders         UInt64,
			max_holder_percentage Float64,
			has_unlimited_mint    Bool,
			has_pausable_trading  Bool,
			has_blacklist         Bool,
			has_ownership_risk    Bool,
			volume_24h            Float64,
			risk_level            LowCardinality(String),
			is_safe               Bool,
			reasons               Array(String),
			evaluated_at_ms       UInt64
		)
		ENGINE = MergeTree()
		ORDER BY (token_address, evaluated_at_ms)
	`))

	return conn
}
