// Package parquet provides data structures and functions for exporting asset
// cache metadata to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/assetcache/schema"
	"github.com/parquet-go/parquet-go"
)

// CacheNamespace represents one cache store and its aggregate size.
// This struct maps to the asset_cache_namespaces database table.
type CacheNamespace struct {
	// Namespace is the cache store name
	Namespace string `parquet:"namespace,snappy"`

	// Current marks the store the proxy is configured to serve from
	Current bool `parquet:"current"`

	// CreatedAt is when the store was first opened
	CreatedAt time.Time `parquet:"created_at,snappy"`

	TotalEntries int64 `parquet:"total_entries,snappy"`
	TotalBytes   int64 `parquet:"total_bytes,snappy"`
	StoredBytes  int64 `parquet:"stored_bytes,snappy"`
}

// CacheEntry represents the metadata of one cached response. Bodies are not exported.
// This struct maps to the asset_cache_entries database table.
type CacheEntry struct {
	// Namespace references the parent cache store
	Namespace string `parquet:"namespace,snappy"`

	// CacheKey is the sha256 digest of the request identity
	CacheKey string `parquet:"cache_key,snappy"`

	Method string `parquet:"method,snappy"`
	URL    string `parquet:"url,snappy"`

	StatusCode   int32  `parquet:"status_code,snappy"`
	ResponseType string `parquet:"response_type,snappy"`

	// ContentType is empty when the origin sent none
	ContentType *string `parquet:"content_type,optional,snappy"`

	// BodySize is the uncompressed body length; StoredSize is the compressed length at rest
	BodySize   int64 `parquet:"body_size,snappy"`
	StoredSize int64 `parquet:"stored_size,snappy"`

	StoredAt time.Time `parquet:"stored_at,snappy"`
}

// WriteCacheEntriesParquet writes a slice of CacheEntry structs to a Parquet file.
func WriteCacheEntriesParquet(data []CacheEntry, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteCacheNamespacesParquet writes a slice of CacheNamespace structs to a Parquet file.
func WriteCacheNamespacesParquet(data []CacheNamespace, outputPath string) error {
	return writeParquet(data, outputPath)
}

func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// ConvertCacheEntryRecords converts schema.CacheEntryRecord to CacheEntry for Parquet export.
func ConvertCacheEntryRecords(records []schema.CacheEntryRecord) []CacheEntry {
	result := make([]CacheEntry, len(records))
	for i, record := range records {
		var contentType *string
		if record.ContentType != "" {
			ct := record.ContentType
			contentType = &ct
		}
		result[i] = CacheEntry{
			Namespace:    record.Namespace,
			CacheKey:     record.Key,
			Method:       record.Method,
			URL:          record.URL,
			StatusCode:   int32(record.StatusCode),
			ResponseType: record.ResponseType,
			ContentType:  contentType,
			BodySize:     record.BodySize,
			StoredSize:   record.StoredSize,
			StoredAt:     record.StoredAt,
		}
	}
	return result
}

// ConvertCacheStatuses converts schema.CacheStatus to CacheNamespace for Parquet export.
func ConvertCacheStatuses(statuses []schema.CacheStatus) []CacheNamespace {
	result := make([]CacheNamespace, len(statuses))
	for i, s := range statuses {
		result[i] = CacheNamespace{
			Namespace:    s.Namespace,
			Current:      s.Current,
			CreatedAt:    s.CreatedAt,
			TotalEntries: int64(s.TotalEntries),
			TotalBytes:   s.TotalBytes,
			StoredBytes:  s.StoredBytes,
		}
	}
	return result
}
