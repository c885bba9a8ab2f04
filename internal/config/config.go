// Package config loads the configuration of the ttlstate command.
package config

import (
	"fmt"
	"strings"
	"time"

	ttlstate "github.com/karupanerura/ttl-state"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: TTLSTATE_SESSION_TTL_SECONDS -> session.ttl.seconds.
const EnvPrefix = "TTLSTATE"

// Config is the whole configuration of the ttlstate command.
type Config struct {
	Session SessionConfig `mapstructure:"session"`
	Storage StorageConfig `mapstructure:"storage"`
	Handler HandlerConfig `mapstructure:"handler"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// SessionConfig configures session freshness.
type SessionConfig struct {
	TTL    ttlstate.TTL `mapstructure:"ttl"`
	Policy string       `mapstructure:"policy"` // "strict" | "early" | "never"
	Early  EarlyConfig  `mapstructure:"early"`
}

// EarlyConfig tunes the early expiration policy.
type EarlyConfig struct {
	Duration   time.Duration `mapstructure:"duration"`
	Percentage float64       `mapstructure:"percentage"`
}

// StorageConfig configures the in-memory storages.
type StorageConfig struct {
	Buckets int `mapstructure:"buckets"`
}

// HandlerConfig selects the expiry handler.
type HandlerConfig struct {
	Mode     string `mapstructure:"mode"` // "default" | "sync" | "async"
	Coalesce bool   `mapstructure:"coalesce"`
}

// SweepConfig configures the background sweeper.
type SweepConfig struct {
	Interval time.Duration `mapstructure:"interval"` // zero disables the sweeper
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Addr      string `mapstructure:"addr"` // empty disables the /metrics endpoint
	Namespace string `mapstructure:"namespace"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session.ttl.days", 0)
	v.SetDefault("session.ttl.hours", 0)
	v.SetDefault("session.ttl.minutes", 0)
	v.SetDefault("session.ttl.seconds", 5)
	v.SetDefault("session.ttl.milliseconds", 0)
	v.SetDefault("session.policy", "strict")
	v.SetDefault("session.early.duration", time.Duration(0))
	v.SetDefault("session.early.percentage", 0.0)
	v.SetDefault("storage.buckets", 256)
	v.SetDefault("handler.mode", string(ttlstate.HandlerSync))
	v.SetDefault("handler.coalesce", false)
	v.SetDefault("sweep.interval", time.Duration(0))
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.namespace", "ttlstate")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the YAML file at path (if any), overlays environment variables, and returns Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	if err := c.Session.TTL.Validate(); err != nil {
		return fmt.Errorf("session.ttl: %w", err)
	}
	switch c.Session.Policy {
	case "strict", "never":
	case "early":
		if c.Session.Early.Percentage < 0 || c.Session.Early.Percentage > 1 {
			return fmt.Errorf("%w: session.early.percentage must be within [0, 1]", ttlstate.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown session.policy %q", ttlstate.ErrConfiguration, c.Session.Policy)
	}
	if c.Storage.Buckets <= 0 {
		return fmt.Errorf("%w: storage.buckets must be positive", ttlstate.ErrConfiguration)
	}
	switch ttlstate.HandlerKind(c.Handler.Mode) {
	case ttlstate.HandlerDefault, ttlstate.HandlerSync, ttlstate.HandlerAsync:
	default:
		return fmt.Errorf("%w: unknown handler.mode %q", ttlstate.ErrConfiguration, c.Handler.Mode)
	}
	if c.Sweep.Interval < 0 {
		return fmt.Errorf("%w: sweep.interval must not be negative", ttlstate.ErrConfiguration)
	}
	return nil
}
