package iocache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/internal/parquet"
)

// ExecuteCacheExport writes cache metadata to two Parquet files next to outputFile.
// Response bodies are never exported.
func ExecuteCacheExport(ctx context.Context, w io.Writer, storage contract.CacheStorage, currentName, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if storage == nil {
		return errors.New("cache storage is not initialized")
	}

	status, err := storage.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get cache status: %w", err)
	}
	if len(status.Namespaces) == 0 {
		return errors.New("no cache data found to export")
	}
	MarkCurrent(&status, currentName)

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total namespaces: %d\n", len(status.Namespaces))

	var records []parquet.CacheEntry
	for _, ns := range status.Namespaces {
		cache, err := storage.Open(ctx, ns.Namespace)
		if err != nil {
			return fmt.Errorf("failed to open cache %s: %w", ns.Namespace, err)
		}
		entries, err := cache.Entries(ctx)
		if err != nil {
			return fmt.Errorf("failed to retrieve entries of %s: %w", ns.Namespace, err)
		}
		records = append(records, parquet.ConvertCacheEntryRecords(entries)...)
	}

	namespacesFile := outputFile + ".namespaces.parquet"
	if err := parquet.WriteCacheNamespacesParquet(parquet.ConvertCacheStatuses(status.Namespaces), namespacesFile); err != nil {
		return fmt.Errorf("failed to write namespaces: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d namespaces to: %s\n", len(status.Namespaces), namespacesFile)

	entriesFile := outputFile + ".entries.parquet"
	if err := parquet.WriteCacheEntriesParquet(records, entriesFile); err != nil {
		return fmt.Errorf("failed to write entries: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d entries to: %s\n", len(records), entriesFile)

	return nil
}
