package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.previewkit.io/v1", cfg.API.BaseURL)
	assert.InDelta(t, 5.0, cfg.API.RateLimit, 0.001)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval())
	assert.Equal(t, 2*time.Minute, cfg.Poll.Timeout())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "preview.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrent)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.InDelta(t, 2.0, cfg.Retry.Multiplier, 0.001)
	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
	assert.Equal(t, 30, cfg.Circuit.ResetTimeoutSecs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
api:
  key: pk_test
poll:
  interval_ms: 500
store:
  driver: postgres
  database_url: postgres://localhost/preview
log:
  level: debug
  format: console
platforms:
  config_path: platforms.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pk_test", cfg.API.Key)
	assert.Equal(t, 500*time.Millisecond, cfg.Poll.Interval())
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "platforms.yaml", cfg.Platforms.ConfigPath)
	// Defaults still apply for unset values
	assert.Equal(t, 120, cfg.Poll.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PREVIEW_STORE_DRIVER", "postgres")
	t.Setenv("PREVIEW_LOG_LEVEL", "warn")
	t.Setenv("PREVIEW_API_KEY", "pk_env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "pk_env", cfg.API.Key)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}

// validDefaults returns a Config with the loaded defaults for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "https://api.previewkit.io/v1"
	cfg.Poll.IntervalMs = 2000
	cfg.Poll.TimeoutSecs = 120
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "preview.db"
	cfg.Server.Port = 8080
	cfg.Batch.MaxConcurrent = 4
	cfg.Circuit.FailureThreshold = 5
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr []string
	}{
		{name: "submit ok", mode: "submit"},
		{name: "watch ok", mode: "watch"},
		{name: "serve ok", mode: "serve"},
		{name: "batch ok", mode: "batch"},
		{name: "jobs ok", mode: "jobs"},
		{name: "render needs nothing", mode: "render", mutate: func(c *Config) { *c = Config{} }},
		{
			name:    "submit missing poll",
			mode:    "submit",
			mutate:  func(c *Config) { c.Poll.IntervalMs = 0; c.Poll.TimeoutSecs = 0 },
			wantErr: []string{"poll.interval_ms must be > 0", "poll.timeout_secs must be > 0"},
		},
		{
			name:    "demo missing base url",
			mode:    "demo",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: []string{"api.base_url is required"},
		},
		{
			name:    "serve bad port",
			mode:    "serve",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: []string{"server.port must be > 0"},
		},
		{
			name:    "batch concurrency bounds",
			mode:    "batch",
			mutate:  func(c *Config) { c.Batch.MaxConcurrent = 100 },
			wantErr: []string{"batch.max_concurrent must be between 1 and 64"},
		},
		{
			name:    "jobs bad driver",
			mode:    "jobs",
			mutate:  func(c *Config) { c.Store.Driver = "mysql"; c.Store.DatabaseURL = "" },
			wantErr: []string{`store.driver "mysql"`, "store.database_url is required"},
		},
		{
			name:    "unknown mode",
			mode:    "unknown",
			wantErr: []string{"unknown mode"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
