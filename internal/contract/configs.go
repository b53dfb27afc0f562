package contract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/huangsam/assetcache/schema"
	"github.com/sirupsen/logrus"
)

// Default values for configuration.
const (
	DefaultFetchTimeout = 60 * time.Second
	DefaultLogLevel     = "info"
	MaxCacheNameLength  = 128
)

// cacheNamePattern restricts namespaces to characters that are safe in file
// names, log lines and SQL string literals.
var cacheNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Config holds the runtime configuration for the asset cache.
// This struct remains the "final, validated" config.
type Config struct {
	Origin       *url.URL // Upstream base URL; allow-list fragments resolve against it
	ListenAddr   string
	CacheName    string   // Current namespace
	AllowList    []string // Ordered URL fragments eligible for interception
	FetchTimeout time.Duration
	LogLevel     logrus.Level

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	Origin         string `mapstructure:"origin"`
	Listen         string `mapstructure:"listen"`
	CacheName      string `mapstructure:"cache-name"`
	AllowList      string `mapstructure:"allow-list"`
	FetchTimeout   string `mapstructure:"fetch-timeout"`
	LogLevel       string `mapstructure:"log-level"`
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	Color          string `mapstructure:"color"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Origin != nil {
		origin := *c.Origin
		clone.Origin = &origin
	}
	if c.AllowList != nil {
		clone.AllowList = make([]string, len(c.AllowList))
		copy(clone.AllowList, c.AllowList)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processOrigin(cfg, input); err != nil {
		return err
	}
	if err := processAllowList(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// ValidateCacheName checks that name can be used as a cache namespace.
func ValidateCacheName(name string) error {
	if name == "" {
		return fmt.Errorf("cache name cannot be empty")
	}
	if len(name) > MaxCacheNameLength {
		return fmt.Errorf("cache name cannot exceed %d characters (received %d)", MaxCacheNameLength, len(name))
	}
	if !cacheNamePattern.MatchString(name) {
		return fmt.Errorf("invalid cache name: %s (must match pattern %s)", name, cacheNamePattern.String())
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("cache-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("cache-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 1. Listen address ---
	cfg.ListenAddr = strings.TrimSpace(input.Listen)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = schema.DefaultListenAddr
	}

	// --- 2. Cache name ---
	cfg.CacheName = strings.TrimSpace(input.CacheName)
	if cfg.CacheName == "" {
		cfg.CacheName = schema.DefaultCacheName
	}
	if err := ValidateCacheName(cfg.CacheName); err != nil {
		return err
	}

	// --- 3. Fetch timeout ---
	cfg.FetchTimeout = DefaultFetchTimeout
	if input.FetchTimeout != "" {
		d, err := time.ParseDuration(input.FetchTimeout)
		if err != nil {
			return fmt.Errorf("invalid fetch timeout '%s': %w", input.FetchTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("fetch timeout must be greater than 0 (received %s)", d)
		}
		cfg.FetchTimeout = d
	}

	// --- 4. Log level ---
	levelStr := input.LogLevel
	if levelStr == "" {
		levelStr = DefaultLogLevel
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", input.LogLevel, err)
	}
	cfg.LogLevel = level

	// --- 5. Colors ---
	colorStr := input.Color
	if colorStr == "" {
		colorStr = "yes"
	}
	colors, err := ParseBoolString(colorStr)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	return nil
}

// processOrigin parses the upstream base URL.
func processOrigin(cfg *Config, input *ConfigRawInput) error {
	raw := strings.TrimSpace(input.Origin)
	if raw == "" {
		raw = schema.DefaultOrigin
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid origin '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must use http or https (received '%s')", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("origin must include a host (received '%s')", raw)
	}
	// Relative fragments resolve against the last path segment, so the base
	// path needs a trailing slash to keep "./wasm/x" under it.
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	cfg.Origin = u
	return nil
}

// processAllowList splits the comma-separated fragment list, keeping order.
func processAllowList(cfg *Config, input *ConfigRawInput) error {
	if strings.TrimSpace(input.AllowList) == "" {
		cfg.AllowList = schema.DefaultAllowList()
		return nil
	}

	cfg.AllowList = nil
	seen := make(map[string]struct{})
	for p := range strings.SplitSeq(input.AllowList, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		cfg.AllowList = append(cfg.AllowList, trimmed)
	}
	if len(cfg.AllowList) == 0 {
		return fmt.Errorf("allow-list must contain at least one fragment")
	}
	return nil
}

// validateBackendConfigs validates the cache backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	backendStr := input.CacheBackend
	if backendStr == "" {
		backendStr = string(schema.SQLiteBackend)
	}
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(backendStr))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	return ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect)
}
