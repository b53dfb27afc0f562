package iocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/schema"
)

// ErrInvalidNamespace is returned when a cache name fails validation.
var ErrInvalidNamespace = errors.New("invalid cache namespace")

// CacheStorageImpl handles durable storage of named caches using various database backends.
type CacheStorageImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.CacheStorage = &CacheStorageImpl{} // Compile-time check

// NewCacheStorage initializes and returns a new CacheStorage based on the backend type.
// The schema is migrated to the latest version before the storage is returned.
func NewCacheStorage(backend schema.DatabaseBackend, connStr string) (contract.CacheStorage, error) {
	if backend == schema.NoneBackend {
		// Return a no-op storage for disabled caching
		return &noneStorage{}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	// SQLite migrates on the shared handle; the server backends pin a
	// connection inside the migrate driver, so they use a short-lived handle.
	if backend == schema.SQLiteBackend {
		_, err = migrateDB(db, backend, LatestVersion)
	} else {
		_, err = MigrateCache(backend, connStr, LatestVersion)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare cache schema: %w", err)
	}

	return &CacheStorageImpl{db: db, backend: backend, connStr: connStr}, nil
}

// Open returns the cache store with the given name, creating it if absent.
func (s *CacheStorageImpl) Open(ctx context.Context, name string) (contract.Cache, error) {
	if err := contract.ValidateCacheName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNamespace, err)
	}
	if _, err := s.db.ExecContext(ctx, insertNamespaceQuery(s.backend), name, time.Now().UnixNano()); err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", name, err)
	}
	return &sqlCache{storage: s, name: name}, nil
}

// Has reports whether a cache store with the given name exists.
func (s *CacheStorageImpl) Has(ctx context.Context, name string) (bool, error) {
	return s.namespaceExists(ctx, s.db, name)
}

// Delete destroys the named cache store and all of its entries.
func (s *CacheStorageImpl) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin delete of cache %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	entriesQuery := rebind(s.backend, fmt.Sprintf(`DELETE FROM %s WHERE namespace = ?`, entriesTable))
	if _, err := tx.ExecContext(ctx, entriesQuery, name); err != nil {
		return false, fmt.Errorf("failed to delete entries of cache %s: %w", name, err)
	}

	nsQuery := rebind(s.backend, fmt.Sprintf(`DELETE FROM %s WHERE name = ?`, namespacesTable))
	res, err := tx.ExecContext(ctx, nsQuery, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete cache %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit delete of cache %s: %w", name, err)
	}
	return affected > 0, nil
}

// Keys lists every cache store name in creation order.
func (s *CacheStorageImpl) Keys(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT name FROM %s ORDER BY created_at, name`, namespacesTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list caches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the underlying DB connection.
func (s *CacheStorageImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetStatus returns status information about the cache storage.
func (s *CacheStorageImpl) GetStatus(ctx context.Context) (schema.StorageStatus, error) {
	status := schema.StorageStatus{
		Backend:   string(s.backend),
		Connected: s.db != nil,
	}

	versionQuery := fmt.Sprintf(`SELECT version FROM %s LIMIT 1`, migrationsTable)
	var version int64
	if err := s.db.QueryRowContext(ctx, versionQuery).Scan(&version); err == nil && version > 0 {
		status.SchemaVersion = uint(version)
	}

	query := fmt.Sprintf(`
		SELECT n.name, n.created_at, COUNT(e.cache_key),
			COALESCE(SUM(e.body_size), 0), COALESCE(SUM(e.stored_size), 0),
			COALESCE(MIN(e.stored_at), 0), COALESCE(MAX(e.stored_at), 0)
		FROM %s n LEFT JOIN %s e ON e.namespace = n.name
		GROUP BY n.name, n.created_at
		ORDER BY n.created_at, n.name`, namespacesTable, entriesTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return status, fmt.Errorf("failed to get cache status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ns schema.CacheStatus
		var created, oldest, last int64
		if err := rows.Scan(&ns.Namespace, &created, &ns.TotalEntries, &ns.TotalBytes, &ns.StoredBytes, &oldest, &last); err != nil {
			return status, fmt.Errorf("failed to scan cache status: %w", err)
		}
		ns.CreatedAt = time.Unix(0, created)
		if ns.TotalEntries > 0 {
			ns.OldestEntryTime = time.Unix(0, oldest)
			ns.LastEntryTime = time.Unix(0, last)
		}
		status.Namespaces = append(status.Namespaces, ns)
	}
	if err := rows.Err(); err != nil {
		return status, err
	}

	status.TableSizeBytes = s.tableSize(ctx, status.Namespaces)
	return status, nil
}

// tableSize estimates the on-disk size of the entries table.
func (s *CacheStorageImpl) tableSize(ctx context.Context, namespaces []schema.CacheStatus) int64 {
	// Rough estimate used when the backend cannot tell us
	var fallback int64
	for _, ns := range namespaces {
		fallback += ns.StoredBytes
	}

	var size int64
	switch s.backend {
	case schema.SQLiteBackend:
		sizeQuery := "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()"
		if err := s.db.QueryRowContext(ctx, sizeQuery).Scan(&size); err != nil {
			return fallback
		}
	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(s.connStr)
		if err != nil || cfg.DBName == "" {
			return fallback
		}
		sizeQuery := "SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?"
		if err := s.db.QueryRowContext(ctx, sizeQuery, cfg.DBName, entriesTable).Scan(&size); err != nil {
			return fallback
		}
	case schema.PostgreSQLBackend:
		if err := s.db.QueryRowContext(ctx, "SELECT pg_total_relation_size($1)", entriesTable).Scan(&size); err != nil {
			return fallback
		}
	default:
		return fallback
	}
	return size
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *CacheStorageImpl) namespaceExists(ctx context.Context, q queryer, name string) (bool, error) {
	query := rebind(s.backend, fmt.Sprintf(`SELECT 1 FROM %s WHERE name = ?`, namespacesTable))
	var one int
	err := q.QueryRowContext(ctx, query, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up cache %s: %w", name, err)
	}
	return true, nil
}
