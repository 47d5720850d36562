package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/recon-cli/internal/rootcause"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Schema     SchemaConfig     `yaml:"schema" mapstructure:"schema"`
	Loader     LoaderConfig     `yaml:"loader" mapstructure:"loader"`
	RootCause  rootcause.Config `yaml:"rootcause" mapstructure:"rootcause"`
	Summarizer SummarizerConfig `yaml:"summarizer" mapstructure:"summarizer"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
}

// StoreConfig configures the session database backend.
type StoreConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL     string `yaml:"database_url" mapstructure:"database_url"`
	SessionTTLHours int    `yaml:"session_ttl_hours" mapstructure:"session_ttl_hours"`
	MaxConns        int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB    int64    `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// ValidationConfig holds pipeline defaults.
type ValidationConfig struct {
	Threshold   float64 `yaml:"threshold" mapstructure:"threshold"`
	MaxParallel int     `yaml:"max_parallel" mapstructure:"max_parallel"`
}

// SchemaConfig tunes column matching.
type SchemaConfig struct {
	SampleSize       int     `yaml:"sample_size" mapstructure:"sample_size"`
	AcceptThreshold  float64 `yaml:"accept_threshold" mapstructure:"accept_threshold"`
	AutoMatchCutover float64 `yaml:"auto_match_cutover" mapstructure:"auto_match_cutover"`
}

// LoaderConfig tunes file loading.
type LoaderConfig struct {
	MaxHeaderScan int `yaml:"max_header_scan" mapstructure:"max_header_scan"`
}

// SummarizerConfig selects the narrative backend.
type SummarizerConfig struct {
	Provider               string `yaml:"provider" mapstructure:"provider"`
	RequestsPerMinute      int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	MaxTokens              int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxAttempts            int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	BreakerThreshold       int    `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSeconds int    `yaml:"breaker_cooldown_seconds" mapstructure:"breaker_cooldown_seconds"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	rc := rootcause.DefaultConfig()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "recon.db")
	v.SetDefault("store.session_ttl_hours", 24)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 50)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("validation.threshold", 3.0)
	v.SetDefault("validation.max_parallel", 4)
	v.SetDefault("schema.sample_size", 5)
	v.SetDefault("schema.accept_threshold", 0.70)
	v.SetDefault("schema.auto_match_cutover", 0.85)
	v.SetDefault("loader.max_header_scan", 4)
	v.SetDefault("rootcause.duplicate_ratio", rc.DuplicateRatio)
	v.SetDefault("rootcause.grain_gap", rc.GrainGap)
	v.SetDefault("rootcause.shift_window", rc.ShiftWindow)
	v.SetDefault("rootcause.shift_min_improvement", rc.ShiftMinImprovement)
	v.SetDefault("rootcause.missing_proportion", rc.MissingProportion)
	v.SetDefault("rootcause.bias_consistency", rc.BiasConsistency)
	v.SetDefault("rootcause.sample_keys", rc.SampleKeys)
	v.SetDefault("summarizer.provider", "none")
	v.SetDefault("summarizer.requests_per_minute", 30)
	v.SetDefault("summarizer.max_tokens", 1024)
	v.SetDefault("summarizer.max_attempts", 3)
	v.SetDefault("summarizer.breaker_threshold", 5)
	v.SetDefault("summarizer.breaker_cooldown_seconds", 30)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("gemini.model", "gemini-2.5-flash-lite")
	// Keys have no default but must be registered for AutomaticEnv to bind
	// them during Unmarshal.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("gemini.key", "")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks the settings a command mode depends on and reports every
// problem at once. Modes are "validate", "serve" and "summarize".
func (c *Config) Validate(mode string) error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	common := func() {
		check(c.Store.Driver == "sqlite" || c.Store.Driver == "postgres", "store.driver must be sqlite or postgres")
		check(c.Store.DatabaseURL != "", "store.database_url is required")
		check(c.Validation.Threshold >= 0, "validation.threshold must be >= 0")
		check(c.Validation.MaxParallel >= 1 && c.Validation.MaxParallel <= 32, "validation.max_parallel must be between 1 and 32")
		check(c.Schema.AcceptThreshold > 0 && c.Schema.AcceptThreshold <= 1, "schema.accept_threshold must be in (0, 1]")
		check(c.Schema.AutoMatchCutover >= c.Schema.AcceptThreshold && c.Schema.AutoMatchCutover <= 1,
			"schema.auto_match_cutover must be between accept_threshold and 1")
	}
	summarizer := func() {
		switch c.Summarizer.Provider {
		case "none", "":
		case "anthropic":
			check(c.Anthropic.Key != "", "anthropic.key is required")
		case "gemini":
			check(c.Gemini.Key != "", "gemini.key is required")
		default:
			problems = append(problems, "summarizer.provider must be none, anthropic or gemini")
		}
	}

	switch mode {
	case "validate":
		common()
	case "serve":
		common()
		summarizer()
		check(c.Server.Port > 0, "server.port must be > 0")
		check(c.Server.MaxUploadMB > 0, "server.max_upload_mb must be > 0")
	case "summarize":
		check(c.Store.DatabaseURL != "", "store.database_url is required")
		summarizer()
		check(c.Summarizer.Provider != "none" && c.Summarizer.Provider != "", "summarizer.provider must be set")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
