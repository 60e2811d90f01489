// Package config loads runtime configuration from an optional YAML
// file, environment variables prefixed PANTRY_, and built-in defaults,
// in that order of precedence (env over file over defaults).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration surface.
type Config struct {
	// DBPath is the SQLite database file location.
	DBPath string `mapstructure:"db_path"`

	// OwnerID identifies the local user for all owned rows.
	OwnerID string `mapstructure:"owner_id"`

	// Tier is the sync entitlement: "free" or "paid".
	Tier string `mapstructure:"tier"`

	Remote RemoteConfig `mapstructure:"remote"`
	Sync   SyncConfig   `mapstructure:"sync"`
	TTL    TTLConfig    `mapstructure:"ttl"`
	Serve  ServeConfig  `mapstructure:"serve"`
}

// RemoteConfig points at the API server and the public product-data
// fallback used when the server is unreachable.
type RemoteConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	FallbackURL string        `mapstructure:"fallback_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SyncConfig tunes the sync orchestrator.
type SyncConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	BatchSize   int           `mapstructure:"batch_size"`
	Retention   time.Duration `mapstructure:"retention"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
}

// TTLConfig sets how long ephemeral rows live before the sweep deletes
// them.
type TTLConfig struct {
	Scan time.Duration `mapstructure:"scan"`
	Cart time.Duration `mapstructure:"cart"`
}

// ServeConfig configures the long-running serve mode.
type ServeConfig struct {
	Addr       string `mapstructure:"addr"`
	LogFile    string `mapstructure:"log_file"`
	LogMaxSize int    `mapstructure:"log_max_size_mb"`
	LogBackups int    `mapstructure:"log_backups"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", ".pantry/pantry.db")
	v.SetDefault("owner_id", "local")
	v.SetDefault("tier", "free")

	v.SetDefault("remote.base_url", "https://api.pantry.example.com")
	v.SetDefault("remote.fallback_url", "https://world.openfoodfacts.org")
	v.SetDefault("remote.timeout", 8*time.Second)

	v.SetDefault("sync.interval", 6*time.Hour)
	v.SetDefault("sync.batch_size", 500)
	v.SetDefault("sync.retention", 30*24*time.Hour)
	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("sync.base_backoff", 2*time.Second)

	v.SetDefault("ttl.scan", 24*time.Hour)
	v.SetDefault("ttl.cart", 24*time.Hour)

	v.SetDefault("serve.addr", "127.0.0.1:7070")
	v.SetDefault("serve.log_file", "")
	v.SetDefault("serve.log_max_size_mb", 10)
	v.SetDefault("serve.log_backups", 3)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("PANTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pantry")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pantry")
	}
	return v
}

// Load reads configuration. path may be empty, in which case a
// pantry.yaml is searched in the working directory and ~/.pantry; a
// missing file is not an error.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Watch reloads the config whenever the file changes on disk and hands
// the fresh copy to onChange. Intended for serve mode; returns
// immediately.
func Watch(path string, onChange func(*Config)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}
