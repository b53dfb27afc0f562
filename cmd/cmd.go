// Package cmd defines the command-line interface for assetcache.
package cmd

import (
	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/internal/iocache"
	"github.com/huangsam/assetcache/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheMigrateCmd)
	cacheCmd.AddCommand(cacheExportCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("origin", schema.DefaultOrigin, "Upstream base URL that serves the page and its assets")
	rootCmd.PersistentFlags().String("cache-name", schema.DefaultCacheName, "Current cache namespace; every other namespace is deleted on activation")
	rootCmd.PersistentFlags().String("allow-list", "", "Comma-separated URL fragments to intercept and seed (default: the MediaPipe WASM assets)")
	rootCmd.PersistentFlags().String("fetch-timeout", contract.DefaultFetchTimeout.String(), "Timeout for each upstream request")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string (sqlite: file path; mysql: user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("listen", schema.DefaultListenAddr, "Address the front proxy listens on")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of cacheMigrateCmd to Viper
	cacheMigrateCmd.Flags().Int("target-version", iocache.LatestVersion, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(cacheMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding cache migrate flags", err)
	}

	// Bind all flags of cacheExportCmd to Viper
	cacheExportCmd.Flags().String("output-file", "", "Path prefix for the exported Parquet files")
	if err := viper.BindPFlags(cacheExportCmd.Flags()); err != nil {
		contract.LogFatal("Error binding cache export flags", err)
	}
}
