package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.DB)
	assert.Equal(t, "canvas.json", cfg.Document)
	assert.Equal(t, "desktop", cfg.Breakpoint)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 4, cfg.MaxConcurrentFetches)
	assert.Equal(t, "composite", cfg.IDGenerator)
	assert.False(t, cfg.Verbose)
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{"db", "EASEL_DB", "/tmp/easel.db", func(c Config) any { return c.DB }, "/tmp/easel.db"},
		{"breakpoint", "EASEL_BREAKPOINT", "mobile", func(c Config) any { return c.Breakpoint }, "mobile"},
		{"fetch_timeout", "EASEL_FETCH_TIMEOUT", "250ms", func(c Config) any { return c.FetchTimeout }, 250 * time.Millisecond},
		{"max_concurrent_fetches", "EASEL_MAX_CONCURRENT_FETCHES", "9", func(c Config) any { return c.MaxConcurrentFetches }, 9},
		{"id_generator", "EASEL_ID_GENERATOR", "uuid7", func(c Config) any { return c.IDGenerator }, "uuid7"},
		{"verbose", "EASEL_VERBOSE", "true", func(c Config) any { return c.Verbose }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			viper.SetEnvPrefix("EASEL")
			viper.AutomaticEnv()
			t.Setenv(tt.envKey, tt.envVal)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.field(cfg))
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	viper.Reset()
	path := filepath.Join(t.TempDir(), ".easel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("document: home.json\ndatasources: sources.hcl\nmax_concurrent_fetches: 2\n"), 0o644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "home.json", cfg.Document)
	assert.Equal(t, "sources.hcl", cfg.DataSources)
	assert.Equal(t, 2, cfg.MaxConcurrentFetches)
}

func TestLoad_RejectsNegativeLimits(t *testing.T) {
	viper.Reset()
	viper.Set("max_concurrent_fetches", -1)
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownIDGenerator(t *testing.T) {
	viper.Reset()
	viper.Set("id_generator", "snowflake")
	_, err := Load()
	assert.ErrorContains(t, err, "snowflake")
}
