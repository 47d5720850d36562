package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/rootcause"
)

// withTestConfig installs a config backed by a temp SQLite database.
func withTestConfig(t *testing.T) *config.Config {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:          "sqlite",
			DatabaseURL:     filepath.Join(t.TempDir(), "recon.db"),
			SessionTTLHours: 24,
		},
		Log:        config.LogConfig{Level: "info", Format: "json"},
		Server:     config.ServerConfig{Port: 8080, MaxUploadMB: 50, AllowedOrigins: []string{"*"}},
		Validation: config.ValidationConfig{Threshold: 3, MaxParallel: 4},
		Schema:     config.SchemaConfig{SampleSize: 5, AcceptThreshold: 0.70, AutoMatchCutover: 0.85},
		Loader:     config.LoaderConfig{MaxHeaderScan: 4},
		RootCause:  rootcause.DefaultConfig(),
		Summarizer: config.SummarizerConfig{Provider: "none"},
	}
	t.Cleanup(func() { cfg = prev })
	return cfg
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"preview", "validate", "serve", "sessions", "summarize"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "recon", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestValidateCommand_Flags(t *testing.T) {
	for _, name := range []string{"gold", "growth", "mapping", "threshold", "output", "export-csv", "no-save"} {
		require.NotNil(t, validateCmd.Flags().Lookup(name), "validate should have --%s", name)
	}
	assert.Equal(t, "3", validateCmd.Flags().Lookup("threshold").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestSessionsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range sessionsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "purge"} {
		assert.True(t, names[name], "expected sessions subcommand %q not found", name)
	}
}

func TestSummarizeCommand_Args(t *testing.T) {
	assert.Error(t, summarizeCmd.Args(summarizeCmd, nil))
	assert.NoError(t, summarizeCmd.Args(summarizeCmd, []string{"id"}))
	require.NotNil(t, summarizeCmd.Flags().Lookup("question"))
	require.NotNil(t, summarizeCmd.Flags().Lookup("refresh"))
}

func TestServerOptions(t *testing.T) {
	withTestConfig(t)

	opts := serverOptions()
	assert.Equal(t, int64(50<<20), opts.MaxUploadBytes)
	assert.Equal(t, 3.0, opts.Threshold)
	assert.Equal(t, 4, opts.MaxParallel)
	assert.Equal(t, 0.85, opts.Schema.AutoMatchCutover)
	assert.Equal(t, 4, opts.Loader.MaxHeaderScan)
	assert.Equal(t, []string{"*"}, opts.AllowedOrigins)
}
