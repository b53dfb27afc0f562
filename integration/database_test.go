//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestAssetCacheWithMySQL tests the assetcache CLI with a MySQL backend.
func TestAssetCacheWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306:3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "assetcache",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(30 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	// Get connection details
	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/assetcache?parseTime=true", host, port.Port())
	runBackendScenario(t, "mysql", connStr)
}

// TestAssetCacheWithPostgres tests the assetcache CLI with a PostgreSQL backend.
func TestAssetCacheWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432:5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()
	time.Sleep(5 * time.Second)

	// Get connection details
	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())
	runBackendScenario(t, "postgresql", connStr)
}

// runBackendScenario drives the CLI through clear, install, status, migrate and clear.
func runBackendScenario(t *testing.T, backend, connStr string) {
	t.Helper()
	origin, _ := newAssetOrigin(t)

	// Set environment variables
	t.Setenv("ASSETCACHE_CACHE_BACKEND", backend)
	t.Setenv("ASSETCACHE_CACHE_DB_CONNECT", connStr)
	t.Setenv("ASSETCACHE_ORIGIN", origin.URL+"/")
	t.Setenv("ASSETCACHE_COLOR", "no")

	_, err := runCommand(t, "cache", "clear")
	require.NoError(t, err)

	_, err = runCommand(t, "install")
	require.NoError(t, err)

	out, err := runCommand(t, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Entries: 3")

	out, err = runCommand(t, "cache", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "No migration needed")

	_, err = runCommand(t, "cache", "clear")
	require.NoError(t, err)
}
