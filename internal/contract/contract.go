// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"net/http"
	"time"

	"github.com/huangsam/assetcache/schema"
)

// CacheManager defines the interface for managing cache storage.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetCacheStorage() CacheStorage
}

// CacheStorage is the set of named cache stores, one per namespace.
type CacheStorage interface {
	// Open returns the cache store with the given name, creating it if absent.
	Open(ctx context.Context, name string) (Cache, error)

	// Has reports whether a cache store with the given name exists.
	Has(ctx context.Context, name string) (bool, error)

	// Delete destroys the named cache store and all of its entries.
	// It reports whether a store was deleted.
	Delete(ctx context.Context, name string) (bool, error)

	// Keys lists every cache store name in creation order.
	Keys(ctx context.Context) ([]string, error)

	// GetStatus returns status information about the storage and its namespaces.
	GetStatus(ctx context.Context) (schema.StorageStatus, error)

	// Close closes the underlying connection
	Close() error
}

// Cache is a single named key to response mapping.
type Cache interface {
	// Name returns the namespace of this store.
	Name() string

	// Match returns the stored response for key, or nil and false on a miss.
	Match(ctx context.Context, key RequestKey) (*StoredResponse, bool, error)

	// Put stores resp under key, replacing any previous entry.
	Put(ctx context.Context, key RequestKey, resp *StoredResponse) error

	// PutAll stores every entry or none of them.
	PutAll(ctx context.Context, entries []CacheEntry) error

	// Delete removes the entry for key and reports whether it existed.
	Delete(ctx context.Context, key RequestKey) (bool, error)

	// Keys lists the request keys held by this store.
	Keys(ctx context.Context) ([]RequestKey, error)

	// Entries lists entry metadata without bodies.
	Entries(ctx context.Context) ([]schema.CacheEntryRecord, error)
}

// StoredResponse is the persisted form of a response: fully buffered and rereadable.
type StoredResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Type       schema.ResponseType
	URL        string
	Body       []byte
	StoredAt   time.Time
}

// CacheEntry pairs a request key with the response stored under it.
type CacheEntry struct {
	Key      RequestKey
	Response *StoredResponse
}
