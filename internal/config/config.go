// Package config loads the stageflow CLI configuration.
//
// Values are layered: defaults, then stageflow.yaml (or the --config file), then
// STAGEFLOW_* environment variables, then command-line flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (STAGEFLOW_STORE_DRIVER, ...).
const EnvPrefix = "STAGEFLOW"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config holds application configuration.
type Config struct {
	Log      LogConfig     `mapstructure:"log"`
	Registry string        `mapstructure:"registry"`
	Policy   string        `mapstructure:"policy"`
	Store    StoreConfig   `mapstructure:"store"`
	Lock     LockConfig    `mapstructure:"lock"`
	HTTP     HTTPConfig    `mapstructure:"http"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	Tracing  TracingConfig `mapstructure:"tracing"`

	Navigator NavigatorConfig `mapstructure:"navigator"`
}

// LogConfig holds slog settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects where live sessions are kept.
type StoreConfig struct {
	Driver string      `mapstructure:"driver"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds the redis store settings.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LockConfig holds the distributed session lock settings (redis only).
type LockConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// MetricsConfig toggles the Prometheus collectors and /metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TracingConfig holds the OTLP exporter settings. An empty endpoint disables export.
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// NavigatorConfig holds the local command navigator settings.
// An empty commands path disables it.
type NavigatorConfig struct {
	Commands string        `mapstructure:"commands"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// New returns a viper instance with defaults and env overrides applied.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("registry", "")
	v.SetDefault("policy", "permissive")
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "stageflow:session:")
	v.SetDefault("store.redis.ttl", "24h")
	v.SetDefault("lock.ttl", "30s")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "stageflow")
	v.SetDefault("navigator.commands", "")
	v.SetDefault("navigator.timeout", "10s")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file into v and decodes the merged result.
// An explicit path must exist; without one, ./stageflow.yaml is optional.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("stageflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the engine factory cannot honour.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("store.driver: unsupported driver %q", c.Store.Driver))
	}
	if c.Store.Driver == DriverRedis && c.Store.Redis.Addr == "" {
		errs = append(errs, errors.New("store.redis.addr: required for the redis driver"))
	}
	if c.Navigator.Timeout < 0 {
		errs = append(errs, errors.New("navigator.timeout: must not be negative"))
	}
	if c.Lock.TTL < 0 {
		errs = append(errs, errors.New("lock.ttl: must not be negative"))
	}
	return errors.Join(errs...)
}
