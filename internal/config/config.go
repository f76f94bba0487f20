// Package config loads formsignal settings from defaults, an optional
// YAML config file, and FORMSIGNAL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/formsignal/internal/reactive"
)

// EnvPrefix prefixes every environment override, e.g.
// FORMSIGNAL_STORE_PATH for store.path.
const EnvPrefix = "FORMSIGNAL"

// Config represents the complete formsignal configuration
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Output   OutputConfig   `mapstructure:"output"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Reactive ReactiveConfig `mapstructure:"reactive"`
	Store    StoreConfig    `mapstructure:"store"`
}

// LogConfig controls the default slog handler
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
}

// OutputConfig controls command output
type OutputConfig struct {
	// Format is "text" or "json"
	Format string `mapstructure:"format"`
}

// BridgeConfig controls how scenarios bind bridges
type BridgeConfig struct {
	// EagerNotify makes every bound bridge notify on each event, even when
	// the projected value is unchanged.
	EagerNotify bool `mapstructure:"eager_notify"`
}

// ReactiveConfig controls the reactive runtime
type ReactiveConfig struct {
	// MaxFlushPasses bounds effect re-execution within one flush
	MaxFlushPasses int `mapstructure:"max_flush_passes"`
}

// StoreConfig controls the trace store
type StoreConfig struct {
	// Path is the SQLite database file used by run and trace
	Path string `mapstructure:"path"`
}

// Default returns a Config with the built-in defaults
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info"},
		Output:   OutputConfig{Format: "text"},
		Bridge:   BridgeConfig{EagerNotify: false},
		Reactive: ReactiveConfig{MaxFlushPasses: reactive.DefaultMaxFlushPasses},
		Store:    StoreConfig{Path: "formsignal.db"},
	}
}

// SetDefaults registers the defaults on v, so every key is known to
// Unmarshal and to environment lookups.
func SetDefaults(v *viper.Viper) {
	defaults := Default()
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("bridge.eager_notify", defaults.Bridge.EagerNotify)
	v.SetDefault("reactive.max_flush_passes", defaults.Reactive.MaxFlushPasses)
	v.SetDefault("store.path", defaults.Store.Path)
}

// New returns a viper instance with defaults, environment overrides, and
// the config file read in. An empty cfgFile searches ConfigDir() and the
// working directory for formsignal.yaml; not finding one is fine. An
// explicit cfgFile must exist.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("formsignal")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	// FORMSIGNAL_BRIDGE_EAGER_NOTIFY for bridge.eager_notify
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads the configuration from v into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// SlogLevel maps Log.Level onto a slog level. Unknown levels map to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "formsignal")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".formsignal"
	}
	return filepath.Join(home, ".config", "formsignal")
}
