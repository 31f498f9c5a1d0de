// Package config loads spaguard's layered YAML/env configuration,
// grounded on the teacher's infrastructure/config.Load: defaults, then
// a global config file, then a project-local one merged on top, then
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/spaguard/spaguard/internal/options"
)

// Config is spaguard's full process configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Beacon BeaconConfig `mapstructure:"beacon"`
	Retry  RetryConfig  `mapstructure:"retry"`
	I18n   I18nConfig   `mapstructure:"i18n"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig controls the zap logger built from this config.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CacheConfig points at the compiled index document htmlcache builds
// from.
type CacheConfig struct {
	IndexPath string `mapstructure:"index_path"`
	Version   string `mapstructure:"version"`
}

// I18nConfig points at an optional translation-override file for the
// fallback page.
type I18nConfig struct {
	OverridesPath string `mapstructure:"overrides_path"`
}

// BeaconConfig controls where diagnostic beacons are sent.
type BeaconConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RetryConfig mirrors options.Options in YAML-friendly form.
type RetryConfig struct {
	ReloadDelays         []time.Duration `mapstructure:"reload_delays"`
	MinTimeBetweenResets time.Duration   `mapstructure:"min_time_between_resets"`
	LazyRetryDelays      []time.Duration `mapstructure:"lazy_retry_delays"`
	CallReloadOnFailure  bool            `mapstructure:"call_reload_on_failure"`
	UseRetryID           bool            `mapstructure:"use_retry_id"`
	AutoRetryChunkErrors bool            `mapstructure:"auto_retry_chunk_errors"`
}

// ToOptions converts the loaded retry section into options.Options,
// falling back to options.Default() for any delay list or duration left
// at its zero value. The boolean fields are copied as they are, so a
// false here overrides a true default.
func (r RetryConfig) ToOptions() options.Options {
	o := options.Default()
	if len(r.ReloadDelays) > 0 {
		o.ReloadDelays = r.ReloadDelays
	}
	if r.MinTimeBetweenResets > 0 {
		o.MinTimeBetweenResets = r.MinTimeBetweenResets
	}
	if len(r.LazyRetryDelays) > 0 {
		o.LazyRetry.RetryDelays = r.LazyRetryDelays
	}
	o.LazyRetry.CallReloadOnFailure = r.CallReloadOnFailure
	o.UseRetryID = r.UseRetryID
	o.AutoRetryChunkErrors = r.AutoRetryChunkErrors
	return o
}

// Load reads configuration in priority order (low to high): built-in
// defaults, ~/.spaguard/config.yaml, ./config.yaml merged on top, then
// SPAGUARD_-prefixed environment variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	globalDir := filepath.Join(os.Getenv("HOME"), ".spaguard")
	v.AddConfigPath(globalDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read global config: %w", err)
		}
	}

	if _, err := os.Stat("./config.yaml"); err == nil {
		local := viper.New()
		local.SetConfigFile("./config.yaml")
		if err := local.ReadInConfig(); err == nil {
			_ = v.MergeConfigMap(local.AllSettings())
		}
	}

	v.SetEnvPrefix("SPAGUARD")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("cache.index_path", "./dist/index.html")
	v.SetDefault("cache.version", "")

	v.SetDefault("i18n.overrides_path", "")

	v.SetDefault("beacon.endpoint", "")
	v.SetDefault("beacon.timeout", "5s")

	v.SetDefault("retry.reload_delays", []string{"0s", "1s", "3s"})
	v.SetDefault("retry.min_time_between_resets", "5s")
	v.SetDefault("retry.lazy_retry_delays", []string{"1s", "2s"})
	v.SetDefault("retry.call_reload_on_failure", true)
	v.SetDefault("retry.use_retry_id", true)
	v.SetDefault("retry.auto_retry_chunk_errors", true)
}
