package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/agentic-research/easel/internal/idgen"
)

// Config holds all runtime configuration for easel.
// Values are populated from .easel.yaml, EASEL_* env vars, and CLI flags.
type Config struct {
	// DB, when set, selects the SQLite store at that path instead of the
	// JSON file store.
	DB                   string        `mapstructure:"db"`
	Document             string        `mapstructure:"document"`
	DataSources          string        `mapstructure:"datasources"`
	Breakpoint           string        `mapstructure:"breakpoint"`
	Catalog              string        `mapstructure:"catalog"`
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	MaxConcurrentFetches int           `mapstructure:"max_concurrent_fetches"`
	// IDGenerator names the component ID strategy: composite or uuid7.
	IDGenerator          string        `mapstructure:"id_generator"`
	Verbose              bool          `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("db", "")
	viper.SetDefault("document", "canvas.json")
	viper.SetDefault("datasources", "")
	viper.SetDefault("breakpoint", "desktop")
	viper.SetDefault("catalog", "")
	viper.SetDefault("fetch_timeout", 10*time.Second)
	viper.SetDefault("max_concurrent_fetches", 4)
	viper.SetDefault("id_generator", "composite")
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.MaxConcurrentFetches < 0 {
		return Config{}, fmt.Errorf("max_concurrent_fetches must not be negative, got %d", cfg.MaxConcurrentFetches)
	}
	if cfg.FetchTimeout < 0 {
		return Config{}, fmt.Errorf("fetch_timeout must not be negative, got %s", cfg.FetchTimeout)
	}
	if _, err := idgen.ByName(cfg.IDGenerator); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
