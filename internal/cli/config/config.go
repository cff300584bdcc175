// Package config loads metacheck settings from metacheck.yaml and METACHECK_* variables
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/metadata-validator/internal/cache"
	"github.com/conduit-lang/metadata-validator/internal/logging"
	"github.com/conduit-lang/metadata-validator/internal/server"
	"github.com/conduit-lang/metadata-validator/internal/store"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// FileName is the config file searched for in the working directory
const FileName = "metacheck.yaml"

// EnvPrefix prefixes every environment override, e.g. METACHECK_CACHE_BACKEND
const EnvPrefix = "METACHECK"

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Config represents the metacheck configuration
type Config struct {
	Log      logging.Config `mapstructure:"log"`
	Registry RegistryConfig `mapstructure:"registry"`
	Output   OutputConfig   `mapstructure:"output"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Store    StoreConfig    `mapstructure:"store"`
	Server   server.Config  `mapstructure:"server"`
}

// RegistryConfig points at an optional declarations file merged over the catalog
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// OutputConfig controls how the CLI prints results
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// CacheConfig selects the report cache
type CacheConfig struct {
	Backend    string            `mapstructure:"backend"`
	TTL        time.Duration     `mapstructure:"ttl"`
	Prefix     string            `mapstructure:"prefix"`
	MaxEntries int               `mapstructure:"max_entries"`
	Redis      cache.RedisConfig `mapstructure:"redis"`
}

// Options converts the settings for cache.Open
func (c CacheConfig) Options() cache.Options {
	return cache.Options{
		Backend:  c.Backend,
		Settings: cache.Settings{TTL: c.TTL, Prefix: c.Prefix, MaxEntries: c.MaxEntries},
		Redis:    c.Redis,
	}
}

// StoreConfig configures report persistence
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("registry.path", "")

	v.SetDefault("output.format", FormatTable)
	v.SetDefault("output.no_color", false)

	cacheDefaults := cache.DefaultSettings()
	redisDefaults := cache.DefaultRedisConfig()
	v.SetDefault("cache.backend", cache.BackendMemory)
	v.SetDefault("cache.ttl", cacheDefaults.TTL)
	v.SetDefault("cache.prefix", cacheDefaults.Prefix)
	v.SetDefault("cache.max_entries", cacheDefaults.MaxEntries)
	v.SetDefault("cache.redis.addr", redisDefaults.Addr)
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.dsn", "metacheck.db")

	serverDefaults := server.DefaultConfig()
	v.SetDefault("server.address", serverDefaults.Address)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.read_timeout", serverDefaults.ReadTimeout)
	v.SetDefault("server.write_timeout", serverDefaults.WriteTimeout)
	v.SetDefault("server.idle_timeout", serverDefaults.IdleTimeout)
	v.SetDefault("server.shutdown_timeout", serverDefaults.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", serverDefaults.MaxBodyBytes)
}

// Load reads path, or metacheck.yaml in the working directory when path is
// empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Save writes cfg as YAML to path
func Save(path string, cfg *Config) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	v := viper.New()
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.development", cfg.Log.Development)
	if cfg.Registry.Path != "" {
		v.Set("registry.path", cfg.Registry.Path)
	}
	v.Set("output.format", cfg.Output.Format)
	v.Set("output.no_color", cfg.Output.NoColor)
	v.Set("cache.backend", cfg.Cache.Backend)
	v.Set("cache.ttl", cfg.Cache.TTL.String())
	v.Set("cache.prefix", cfg.Cache.Prefix)
	v.Set("cache.max_entries", cfg.Cache.MaxEntries)
	if cfg.Cache.Backend == cache.BackendRedis {
		v.Set("cache.redis.addr", cfg.Cache.Redis.Addr)
		v.Set("cache.redis.db", cfg.Cache.Redis.DB)
	}
	v.Set("store.enabled", cfg.Store.Enabled)
	v.Set("store.driver", cfg.Store.Driver)
	v.Set("store.dsn", cfg.Store.DSN)
	v.Set("server.address", cfg.Server.Address)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// defaults always decode
	_ = v.Unmarshal(&config)
	return &config
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	switch cfg.Output.Format {
	case FormatTable, FormatJSON:
	default:
		return fmt.Errorf("output.format must be %q or %q, got: %s", FormatTable, FormatJSON, cfg.Output.Format)
	}

	switch cfg.Cache.Backend {
	case cache.BackendNone, cache.BackendMemory, cache.BackendRedis:
	default:
		return fmt.Errorf("cache.backend must be one of none, memory, redis, got: %s", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got: %s", cfg.Cache.TTL)
	}
	if cfg.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative, got: %d", cfg.Cache.MaxEntries)
	}

	supported := false
	for _, d := range store.Drivers() {
		if d == cfg.Store.Driver {
			supported = true
		}
	}
	if !supported {
		return fmt.Errorf("store.driver must be one of %s, got: %s", strings.Join(store.Drivers(), ", "), cfg.Store.Driver)
	}
	if cfg.Store.Enabled && cfg.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required when store.enabled is set")
	}

	return nil
}
