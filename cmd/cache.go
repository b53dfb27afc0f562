package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/internal/iocache"
	"github.com/huangsam/assetcache/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
// Storage is only opened when openStores is set.
func cacheSetup(openStores bool) error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	// Get cache-related config values
	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	connStr := viper.GetString("cache-db-connect")
	cacheName := viper.GetString("cache-name")

	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return fmt.Errorf("invalid cache backend: %s", backend)
	}
	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}
	if err := contract.ValidateCacheName(cacheName); err != nil {
		return err
	}
	useColors, err := contract.ParseBoolString(viper.GetString("color"))
	if err != nil {
		return err
	}
	contract.ConfigureColors(useColors)

	if openStores {
		if err := iocache.InitStores(backend, connStr); err != nil {
			return fmt.Errorf("failed to initialize cache: %w", err)
		}
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	cfg.CacheName = cacheName
	cfg.UseColors = useColors

	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup(true)
}

// cacheConfigWrapper validates cache config without opening storage.
func cacheConfigWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup(false)
}

// sqliteFilePath returns the database file the sqlite backend uses.
func sqliteFilePath() string {
	if cfg.CacheDBConnect != "" {
		return cfg.CacheDBConnect
	}
	return iocache.GetDBFilePath()
}

// cacheCmd focused on cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by serve and install. This avoids origin and
// allow-list validation for simple storage operations.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the persistent asset cache",
	Long: `Inspect and manage the cache stores that hold intercepted assets.

Each cache store is a namespace. The one named by --cache-name is current;
every other namespace is stale and is deleted the next time a version activates.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (no persistence)

Subcommands:
  status  - Show backend and per-namespace statistics
  list    - List namespaces, or the entries of one namespace
  clear   - Remove all cached data
  migrate - Apply or roll back schema migrations
  export  - Write cache metadata to Parquet files

Examples:
  # Check cache status
  assetcache cache status

  # Show what the current namespace holds
  assetcache cache list mediapipe-cache-v1`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached assets",
	Long: `Delete every cache store from the configured backend.

Use this when:
- The origin republished assets without a new cache name
- Cache may be stale or corrupted
- Testing cold-start behavior

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache tables and migration history

Examples:
  # Clear SQLite cache (default)
  assetcache cache clear

  # Clear MySQL cache (set connection string via env variable)
  ASSETCACHE_CACHE_BACKEND=mysql ASSETCACHE_CACHE_DB_CONNECT="..." assetcache cache clear`,
	PreRunE: cacheConfigWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearCache(cfg.CacheBackend, sqliteFilePath(), cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the asset cache.

Displays:
- Backend type, connection status and schema version
- Entries and body sizes per namespace
- Last and oldest entry timestamps per namespace
- Cache database size

Examples:
  # Check cache status
  assetcache cache status`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := cacheManager.GetCacheStorage().GetStatus(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.MarkCurrent(&status, cfg.CacheName)
		iocache.PrintStorageStatus(os.Stdout, status)
	},
}

// cacheListCmd lists namespaces or the entries of one namespace.
var cacheListCmd = &cobra.Command{
	Use:   "list [namespace]",
	Short: "List cache stores or the entries of one store",
	Long: `Without arguments, print one row per cache store.
With a namespace, print the entries it holds (bodies are never shown).

Examples:
  # List all namespaces
  assetcache cache list

  # List entries of the current namespace
  assetcache cache list mediapipe-cache-v1`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: cacheSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		storage := cacheManager.GetCacheStorage()
		if len(args) == 0 {
			status, err := storage.GetStatus(rootCtx)
			if err != nil {
				return fmt.Errorf("failed to get cache status: %w", err)
			}
			iocache.MarkCurrent(&status, cfg.CacheName)
			return iocache.PrintNamespaceTable(os.Stdout, status.Namespaces)
		}

		name := args[0]
		exists, err := storage.Has(rootCtx, name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("cache %s does not exist", name)
		}
		cache, err := storage.Open(rootCtx, name)
		if err != nil {
			return err
		}
		entries, err := cache.Entries(rootCtx)
		if err != nil {
			return err
		}
		return iocache.PrintEntryTable(os.Stdout, entries)
	},
}

// cacheMigrateCmd runs schema migrations.
var cacheMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back cache schema migrations",
	Long: `Move the cache schema to a target version.

Migrations run automatically whenever storage is opened. Use this command to
inspect the version or to roll back before downgrading the binary.

Examples:
  # Migrate to the latest version
  assetcache cache migrate

  # Roll back everything
  assetcache cache migrate --target-version 0`,
	PreRunE: cacheConfigWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		result, err := iocache.MigrateCache(cfg.CacheBackend, cfg.CacheDBConnect, viper.GetInt("target-version"))
		if err != nil {
			return err
		}
		fmt.Println(result.String())
		return nil
	},
}

// cacheExportCmd exports cache metadata.
var cacheExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export cache metadata to Parquet files",
	Long: `Write namespace and entry metadata to two Parquet files:
<output-file>.namespaces.parquet and <output-file>.entries.parquet.
Response bodies are not exported.

Examples:
  assetcache cache export --output-file /tmp/assetcache`,
	PreRunE: cacheSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return iocache.ExecuteCacheExport(rootCtx, os.Stdout, cacheManager.GetCacheStorage(), cfg.CacheName, viper.GetString("output-file"))
	},
}
