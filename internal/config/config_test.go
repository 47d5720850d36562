package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "recon.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 24, cfg.Store.SessionTTLHours)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(50), cfg.Server.MaxUploadMB)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.InDelta(t, 3.0, cfg.Validation.Threshold, 0.001)
	assert.Equal(t, 4, cfg.Validation.MaxParallel)
	assert.Equal(t, 5, cfg.Schema.SampleSize)
	assert.InDelta(t, 0.70, cfg.Schema.AcceptThreshold, 0.001)
	assert.InDelta(t, 0.85, cfg.Schema.AutoMatchCutover, 0.001)
	assert.Equal(t, 4, cfg.Loader.MaxHeaderScan)
	assert.InDelta(t, 1.10, cfg.RootCause.DuplicateRatio, 0.001)
	assert.Equal(t, 3, cfg.RootCause.ShiftWindow)
	assert.Equal(t, 5, cfg.RootCause.SampleKeys)
	assert.Equal(t, "none", cfg.Summarizer.Provider)
	assert.Equal(t, 30, cfg.Summarizer.RequestsPerMinute)
	assert.Equal(t, 3, cfg.Summarizer.MaxAttempts)
	assert.Equal(t, 5, cfg.Summarizer.BreakerThreshold)
	assert.Equal(t, 30, cfg.Summarizer.BreakerCooldownSeconds)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Gemini.Model)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/recon
log:
  level: debug
  format: console
validation:
  threshold: 5
rootcause:
  grain_gap: 30
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/recon", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 5.0, cfg.Validation.Threshold, 0.001)
	assert.InDelta(t, 30.0, cfg.RootCause.GrainGap, 0.001)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.80, cfg.RootCause.BiasConsistency, 0.001)
	assert.Equal(t, 8080, cfg.Server.Port)
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

	t.Setenv("RECON_STORE_DRIVER", "postgres")
	t.Setenv("RECON_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	env := "RECON_ANTHROPIC_KEY=sk-from-dotenv\nRECON_SERVER_PORT=3000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644))
	t.Cleanup(func() {
		os.Unsetenv("RECON_ANTHROPIC_KEY")
		os.Unsetenv("RECON_SERVER_PORT")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-from-dotenv", cfg.Anthropic.Key)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "recon.db"
	cfg.Server.Port = 8080
	cfg.Server.MaxUploadMB = 50
	cfg.Validation.Threshold = 3
	cfg.Validation.MaxParallel = 4
	cfg.Schema.AcceptThreshold = 0.7
	cfg.Schema.AutoMatchCutover = 0.85
	cfg.Summarizer.Provider = "none"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "validate ok", mode: "validate"},
		{name: "serve ok", mode: "serve"},
		{name: "bad driver", mode: "validate", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "store.driver"},
		{name: "negative threshold", mode: "validate", mutate: func(c *Config) { c.Validation.Threshold = -1 }, wantErr: "validation.threshold must be >= 0"},
		{name: "parallel bounds", mode: "validate", mutate: func(c *Config) { c.Validation.MaxParallel = 0 }, wantErr: "max_parallel must be between 1 and 32"},
		{name: "cutover below accept", mode: "validate", mutate: func(c *Config) { c.Schema.AutoMatchCutover = 0.5 }, wantErr: "auto_match_cutover"},
		{name: "invalid port", mode: "serve", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port must be > 0"},
		{name: "anthropic without key", mode: "serve", mutate: func(c *Config) { c.Summarizer.Provider = "anthropic" }, wantErr: "anthropic.key is required"},
		{name: "gemini with key", mode: "serve", mutate: func(c *Config) {
			c.Summarizer.Provider = "gemini"
			c.Gemini.Key = "g-key"
		}},
		{name: "bad provider", mode: "serve", mutate: func(c *Config) { c.Summarizer.Provider = "openai" }, wantErr: "summarizer.provider"},
		{name: "summarize needs provider", mode: "summarize", wantErr: "summarizer.provider must be set"},
		{name: "unknown mode", mode: "unknown", wantErr: "unknown mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "server.port must be > 0")
}
