// Package config loads examcore settings from an optional YAML file, a
// .env file and EXAMCORE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/abhisek/examcore/internal/apperr"
	"github.com/abhisek/examcore/internal/mastery"
	"github.com/abhisek/examcore/internal/selector"
	"github.com/abhisek/examcore/internal/spacedrep"
)

// EnvPrefix prefixes every environment override, e.g. EXAMCORE_STORE_DSN.
const EnvPrefix = "EXAMCORE"

// Config is the full service configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Engine  Engine        `mapstructure:"engine"`
}

// StoreConfig selects the state store backend.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	// DSN is a file path for sqlite or a connection URL for postgres.
	// Empty selects the default SQLite path.
	DSN string `mapstructure:"dsn"`
}

// CatalogConfig locates the item catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	Addr      string          `mapstructure:"addr"`
	Mode      string          `mapstructure:"mode"` // gin mode: debug, release, test
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig is a per-user token bucket. RequestsPerSecond 0 disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
	// File, when set, receives JSON logs rotated by size.
	File string `mapstructure:"file"`
}

// Engine holds the tunables of the learning engine.
type Engine struct {
	DefaultTargetSize    int                         `mapstructure:"default_target_size"`
	WeakRatio            float64                     `mapstructure:"weak_ratio"`
	MinAttempts          int                         `mapstructure:"min_attempts"`
	MasteryRecencyWeight float64                     `mapstructure:"mastery_recency_weight"`
	MaxConflictRetries   int                         `mapstructure:"max_conflict_retries"`
	Quality              spacedrep.QualityThresholds `mapstructure:"quality"`
}

// DefaultEngine returns the default engine settings.
func DefaultEngine() Engine {
	return Engine{
		DefaultTargetSize:    20,
		WeakRatio:            selector.DefaultWeakRatio,
		MinAttempts:          mastery.DefaultMinAttempts,
		MasteryRecencyWeight: mastery.DefaultRecencyWeight,
		MaxConflictRetries:   3,
		Quality:              spacedrep.DefaultQualityThresholds(),
	}
}

// Default returns a Config with every field at its default.
func Default() Config {
	return Config{
		Store: StoreConfig{Driver: "sqlite"},
		HTTP: HTTPConfig{
			Addr: ":8080",
			Mode: "release",
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 10,
				Burst:             20,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Engine: DefaultEngine(),
	}
}

// Load reads configuration. path names a YAML file; when empty,
// examcore.yaml is looked up in the working directory and in
// $XDG_CONFIG_HOME/examcore, and a missing file is not an error.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("examcore")
		v.AddConfigPath(".")
		if dir := configDir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.mode", d.HTTP.Mode)
	v.SetDefault("http.rate_limit.requests_per_second", d.HTTP.RateLimit.RequestsPerSecond)
	v.SetDefault("http.rate_limit.burst", d.HTTP.RateLimit.Burst)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("engine.default_target_size", d.Engine.DefaultTargetSize)
	v.SetDefault("engine.weak_ratio", d.Engine.WeakRatio)
	v.SetDefault("engine.min_attempts", d.Engine.MinAttempts)
	v.SetDefault("engine.mastery_recency_weight", d.Engine.MasteryRecencyWeight)
	v.SetDefault("engine.max_conflict_retries", d.Engine.MaxConflictRetries)
	v.SetDefault("engine.quality.perfect", d.Engine.Quality.Perfect)
	v.SetDefault("engine.quality.good", d.Engine.Quality.Good)
	v.SetDefault("engine.quality.pass", d.Engine.Quality.Pass)
	v.SetDefault("engine.quality.poor", d.Engine.Quality.Poor)
}

func configDir() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return filepath.Join(d, "examcore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "examcore")
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return apperr.Validation("store.driver", "must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		return apperr.Validation("store.dsn", "required for postgres")
	}

	switch c.HTTP.Mode {
	case "debug", "release", "test":
	default:
		return apperr.Validation("http.mode", "must be debug, release or test, got %q", c.HTTP.Mode)
	}
	if c.HTTP.RateLimit.RequestsPerSecond < 0 {
		return apperr.Validation("http.rate_limit.requests_per_second", "must not be negative")
	}
	if c.HTTP.RateLimit.RequestsPerSecond > 0 && c.HTTP.RateLimit.Burst < 1 {
		return apperr.Validation("http.rate_limit.burst", "must be at least 1 when rate limiting is on")
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return apperr.Validation("log.level", "%v", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return apperr.Validation("log.format", "must be console or json, got %q", c.Log.Format)
	}

	return c.Engine.Validate()
}

// Validate checks the engine tunables.
func (e Engine) Validate() error {
	if e.DefaultTargetSize <= 0 {
		return apperr.Validation("engine.default_target_size", "must be positive, got %d", e.DefaultTargetSize)
	}
	if !(e.WeakRatio > 0 && e.WeakRatio <= 1) {
		return apperr.Validation("engine.weak_ratio", "must be in (0, 1], got %v", e.WeakRatio)
	}
	if e.MinAttempts < 1 {
		return apperr.Validation("engine.min_attempts", "must be at least 1, got %d", e.MinAttempts)
	}
	if !(e.MasteryRecencyWeight > 0 && e.MasteryRecencyWeight <= 1) {
		return apperr.Validation("engine.mastery_recency_weight", "must be in (0, 1], got %v", e.MasteryRecencyWeight)
	}
	if e.MaxConflictRetries < 0 {
		return apperr.Validation("engine.max_conflict_retries", "must not be negative")
	}
	return e.Quality.Validate()
}
