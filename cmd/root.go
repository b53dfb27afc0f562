package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/assetcache/internal/contract"
	"github.com/huangsam/assetcache/internal/interceptor"
	"github.com/huangsam/assetcache/internal/iocache"
	"github.com/huangsam/assetcache/schema"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// cacheManager is the global persistence manager instance.
var cacheManager contract.CacheManager = iocache.Manager

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "assetcache",
	Short: "Cache large web assets in front of their origin.",
	Long: `assetcache is a front proxy that keeps a persistent local copy of a fixed
allow-list of large assets (a WASM runtime, its loader and a model file) so that
they are downloaded from the origin once, not on every page load.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("ASSETCACHE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("origin", schema.DefaultOrigin)
	viper.SetDefault("listen", schema.DefaultListenAddr)
	viper.SetDefault("cache-name", schema.DefaultCacheName)
	viper.SetDefault("allow-list", strings.Join(schema.DefaultAllowList(), ","))
	viper.SetDefault("fetch-timeout", contract.DefaultFetchTimeout.String())
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("cache-backend", string(schema.SQLiteBackend))
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("color", "yes")
}

// setConfigFile points Viper at --config or the default search paths.
func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".assetcache") // Name of config file (without extension)
	viper.SetConfigType("yaml")        // We'll use YAML format
	viper.AddConfigPath(".")           // Look in the current directory
	viper.AddConfigPath("$HOME")       // Look in the home directory
}

// loadConfigFile reads the config file if present.
func loadConfigFile() error {
	setConfigFile()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config, runs validation and opens cache storage.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	contract.ConfigureColors(cfg.UseColors)

	// 4. Initialize persistence layer with validated config
	if err := iocache.InitStores(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// newLogger returns the diagnostic logger for the configured level.
func newLogger() *logrus.Logger {
	return contract.NewLogger(cfg.LogLevel, os.Stderr)
}

// newInterceptor builds the interceptor version described by cfg.
func newInterceptor(logger logrus.FieldLogger) (*interceptor.Interceptor, error) {
	return interceptor.New(cfg, cacheManager.GetCacheStorage(), nil, logger)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetCacheManager sets the global cache manager.
func SetCacheManager(mgr contract.CacheManager) {
	cacheManager = mgr
}
