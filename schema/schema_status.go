package schema

import "time"

// CacheStatus represents the status of a single cache namespace.
type CacheStatus struct {
	Namespace       string    `json:"namespace"`
	Current         bool      `json:"current"`
	TotalEntries    int       `json:"total_entries"`
	TotalBytes      int64     `json:"total_bytes"`
	StoredBytes     int64     `json:"stored_bytes"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	CreatedAt       time.Time `json:"created_at"`
}

// StorageStatus represents the status of the cache storage as a whole.
type StorageStatus struct {
	Backend        string        `json:"backend"`
	Connected      bool          `json:"connected"`
	SchemaVersion  uint          `json:"schema_version"`
	Namespaces     []CacheStatus `json:"namespaces"`
	TableSizeBytes int64         `json:"table_size_bytes"`
}

// CacheEntryRecord represents a row from the asset_cache_entries table, without the body.
type CacheEntryRecord struct {
	Namespace    string    `json:"namespace"`
	Key          string    `json:"key"`
	Method       string    `json:"method"`
	URL          string    `json:"url"`
	StatusCode   int       `json:"status_code"`
	ResponseType string    `json:"response_type"`
	ContentType  string    `json:"content_type"`
	BodySize     int64     `json:"body_size"`
	StoredSize   int64     `json:"stored_size"`
	StoredAt     time.Time `json:"stored_at"`
}
