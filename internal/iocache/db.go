package iocache

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for the cache storage.
const (
	namespacesTable = "asset_cache_namespaces"
	entriesTable    = "asset_cache_entries"
)

// openDB opens and pings a database handle for the given backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = contract.GetCacheDBFilePath()
		}
		db, err = sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite cache at %q: %w. Ensure the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		db, err = sql.Open("mysql", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL cache: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=mysecretpassword dbname=postgres
		db, err = sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL cache: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	default:
		return nil, fmt.Errorf("unsupported cache backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}
	return db, nil
}

// rebind rewrites '?' placeholders into the backend's native form.
func rebind(backend schema.DatabaseBackend, query string) string {
	if backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// insertNamespaceQuery returns an insert that leaves an existing namespace untouched.
func insertNamespaceQuery(backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT IGNORE INTO %s (name, created_at) VALUES (?, ?)`, namespacesTable)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (name, created_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, namespacesTable)
	default: // SQLite
		return fmt.Sprintf(`INSERT OR IGNORE INTO %s (name, created_at) VALUES (?, ?)`, namespacesTable)
	}
}

// upsertEntryQuery returns the UPSERT query for a cache entry.
func upsertEntryQuery(backend schema.DatabaseBackend) string {
	const cols = `namespace, cache_key, method, url, status_code, status_text, response_type, headers, vary_headers, body, body_size, stored_size, stored_at`
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE method = new.method, url = new.url, status_code = new.status_code,
			status_text = new.status_text, response_type = new.response_type, headers = new.headers,
			vary_headers = new.vary_headers, body = new.body, body_size = new.body_size, stored_size = new.stored_size, stored_at = new.stored_at`, entriesTable, cols)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (namespace, cache_key) DO UPDATE SET method = EXCLUDED.method, url = EXCLUDED.url,
			status_code = EXCLUDED.status_code, status_text = EXCLUDED.status_text, response_type = EXCLUDED.response_type,
			headers = EXCLUDED.headers, vary_headers = EXCLUDED.vary_headers, body = EXCLUDED.body, body_size = EXCLUDED.body_size,
			stored_size = EXCLUDED.stored_size, stored_at = EXCLUDED.stored_at`, entriesTable, cols)

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, entriesTable, cols)
	}
}
