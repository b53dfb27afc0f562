// Package iocache persists named asset caches in SQL databases.
package iocache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/schema"
)

// Errors returned by cache stores.
var (
	// ErrNotCacheable is returned when a request key cannot be stored (non-GET).
	ErrNotCacheable = errors.New("request is not cacheable")

	// ErrCacheDeleted is returned when writing into a store whose namespace was deleted.
	ErrCacheDeleted = errors.New("cache has been deleted")
)

// sqlCache is one namespace inside a CacheStorageImpl.
type sqlCache struct {
	storage *CacheStorageImpl
	name    string
}

var _ contract.Cache = &sqlCache{} // Compile-time check

// Name returns the namespace of this store.
func (c *sqlCache) Name() string {
	return c.name
}

// Match returns the stored response for key.
func (c *sqlCache) Match(ctx context.Context, key contract.RequestKey) (*contract.StoredResponse, bool, error) {
	if !key.Cacheable() {
		return nil, false, nil
	}

	query := rebind(c.storage.backend, fmt.Sprintf(
		`SELECT status_code, status_text, response_type, url, headers, vary_headers, body, stored_at FROM %s WHERE namespace = ? AND cache_key = ?`,
		entriesTable))
	row := c.storage.db.QueryRowContext(ctx, query, c.name, entryKey(key))

	var (
		resp     contract.StoredResponse
		respType string
		headers  string
		vary     sql.NullString
		body     []byte
		storedAt int64
	)
	if err := row.Scan(&resp.StatusCode, &resp.Status, &respType, &resp.URL, &headers, &vary, &body, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to match %s in cache %s: %w", key, c.name, err)
	}

	// Same URL, different representation
	matched, err := varyMatches(vary.String, key.Header)
	if err != nil || !matched {
		return nil, false, err
	}

	h, err := decodeHeader(headers)
	if err != nil {
		return nil, false, err
	}
	decoded, err := decompressBody(body)
	if err != nil {
		return nil, false, err
	}
	resp.Header = h
	resp.Body = decoded
	resp.Type = schema.ResponseType(respType)
	resp.StoredAt = time.Unix(0, storedAt)
	return &resp, true, nil
}

// Put stores resp under key, replacing any previous entry.
func (c *sqlCache) Put(ctx context.Context, key contract.RequestKey, resp *contract.StoredResponse) error {
	return c.PutAll(ctx, []contract.CacheEntry{{Key: key, Response: resp}})
}

// PutAll stores every entry in one transaction.
func (c *sqlCache) PutAll(ctx context.Context, entries []contract.CacheEntry) error {
	for _, e := range entries {
		if !e.Key.Cacheable() {
			return fmt.Errorf("%w: %s", ErrNotCacheable, e.Key)
		}
		if e.Response == nil {
			return fmt.Errorf("nil response for %s", e.Key)
		}
	}

	tx, err := c.storage.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin write to cache %s: %w", c.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	exists, err := c.storage.namespaceExists(ctx, tx, c.name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrCacheDeleted, c.name)
	}

	query := upsertEntryQuery(c.storage.backend)
	now := time.Now()
	for _, e := range entries {
		headers, err := encodeHeader(e.Response.Header)
		if err != nil {
			return err
		}
		vary, err := encodeVary(e.Response.Header, e.Key.Header)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrNotCacheable, e.Key, err)
		}
		stored := compressBody(e.Response.Body)
		storedAt := e.Response.StoredAt
		if storedAt.IsZero() {
			storedAt = now
		}
		if _, err := tx.ExecContext(ctx, query,
			c.name, entryKey(e.Key), e.Key.Method, e.Key.URL,
			e.Response.StatusCode, e.Response.Status, string(e.Response.Type), headers, vary,
			stored, int64(len(e.Response.Body)), int64(len(stored)), storedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to store %s in cache %s: %w", e.Key, c.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write to cache %s: %w", c.name, err)
	}
	return nil
}

// Delete removes the entry for key.
func (c *sqlCache) Delete(ctx context.Context, key contract.RequestKey) (bool, error) {
	query := rebind(c.storage.backend, fmt.Sprintf(`DELETE FROM %s WHERE namespace = ? AND cache_key = ?`, entriesTable))
	res, err := c.storage.db.ExecContext(ctx, query, c.name, entryKey(key))
	if err != nil {
		return false, fmt.Errorf("failed to delete %s from cache %s: %w", key, c.name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Keys lists the request keys held by this store, oldest first.
func (c *sqlCache) Keys(ctx context.Context) ([]contract.RequestKey, error) {
	query := rebind(c.storage.backend, fmt.Sprintf(
		`SELECT method, url FROM %s WHERE namespace = ? ORDER BY stored_at, url`, entriesTable))
	rows, err := c.storage.db.QueryContext(ctx, query, c.name)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys of cache %s: %w", c.name, err)
	}
	defer func() { _ = rows.Close() }()

	var keys []contract.RequestKey
	for rows.Next() {
		var k contract.RequestKey
		if err := rows.Scan(&k.Method, &k.URL); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Entries lists entry metadata without bodies, oldest first.
func (c *sqlCache) Entries(ctx context.Context) ([]schema.CacheEntryRecord, error) {
	query := rebind(c.storage.backend, fmt.Sprintf(
		`SELECT cache_key, method, url, status_code, response_type, headers, body_size, stored_size, stored_at
		FROM %s WHERE namespace = ? ORDER BY stored_at, url`, entriesTable))
	rows, err := c.storage.db.QueryContext(ctx, query, c.name)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries of cache %s: %w", c.name, err)
	}
	defer func() { _ = rows.Close() }()

	var records []schema.CacheEntryRecord
	for rows.Next() {
		rec := schema.CacheEntryRecord{Namespace: c.name}
		var headers string
		var storedAt int64
		if err := rows.Scan(&rec.Key, &rec.Method, &rec.URL, &rec.StatusCode, &rec.ResponseType,
			&headers, &rec.BodySize, &rec.StoredSize, &storedAt); err != nil {
			return nil, err
		}
		if h, err := decodeHeader(headers); err == nil {
			rec.ContentType = h.Get("Content-Type")
		}
		rec.StoredAt = time.Unix(0, storedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ToStoredResponse is a convenience for building a stored response from parts.
func ToStoredResponse(status int, header http.Header, respType schema.ResponseType, url string, body []byte) *contract.StoredResponse {
	return &contract.StoredResponse{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     header,
		Type:       respType,
		URL:        url,
		Body:       body,
	}
}
