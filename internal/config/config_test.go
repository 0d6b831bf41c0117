package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "intel.db", cfg.Store.Path)
	assert.Equal(t, 3, cfg.Scan.MaxConcurrent)
	assert.False(t, cfg.Scan.CacheOnly)
	assert.True(t, cfg.Scan.AutoDiscoverIfEmpty)
	assert.Equal(t, 24, cfg.Scan.RescanWindowHours)
	assert.Equal(t, 60, cfg.Scan.SourceTimeoutSecs)
	assert.Equal(t, "https://api.firecrawl.dev/v2", cfg.Firecrawl.BaseURL)
	assert.Equal(t, "https://places.googleapis.com/v1", cfg.Google.BaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, 3, cfg.Resilience.MaxAttempts)
	assert.Equal(t, 5, cfg.Resilience.FailureThreshold)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/intel
scan:
  max_concurrent: 5
  cache_only: true
log:
  level: debug
  format: console
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/intel", cfg.Store.DatabaseURL)
	assert.Equal(t, 5, cfg.Scan.MaxConcurrent)
	assert.True(t, cfg.Scan.CacheOnly)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 24, cfg.Scan.RescanWindowHours)
}

func TestLoadEnvOverride(t *testing.T) {
	chTempDir(t)
	t.Setenv("INTEL_SCAN_MAX_CONCURRENT", "7")
	t.Setenv("INTEL_SCAN_CACHE_ONLY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Scan.MaxConcurrent)
	assert.True(t, cfg.Scan.CacheOnly)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid_sqlite", func(c *Config) {}, ""},
		{"sqlite_missing_path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"postgres_missing_url", func(c *Config) { c.Store.Driver = "postgres" }, "store.database_url"},
		{"unknown_driver", func(c *Config) { c.Store.Driver = "flatfile" }, "unknown store driver"},
		{"zero_concurrency", func(c *Config) { c.Scan.MaxConcurrent = 0 }, "max_concurrent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Store: StoreConfig{Driver: "sqlite", Path: "intel.db"},
				Scan:  ScanConfig{MaxConcurrent: 3},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nonsense", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
