// Package config loads the kernel's runtime configuration from a YAML file
// with environment-variable overrides, the way
// 0xtitan6-polymarket-mm/internal/config loads its bot config: a single
// mapstructure-tagged Config, ARGOYA_* env overrides for anything
// sensitive, and a Validate pass before the server starts serving.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig points at the Postgres instance internal/store migrates
// and connects to.
type DatabaseConfig struct {
	DSN             string `mapstructure:"dsn"`
	FuzzyScanLimit  int    `mapstructure:"fuzzy_scan_limit"`
}

// AdapterConfig configures one external HTTP-backed dependency (LLM text,
// LLM safety, LLM severity, OCR, intent classifier, speech-to-text).
// Empty BaseURL means "use the mock implementation" — a deployment with no
// provider configured still runs against the mocks rather than refusing
// to start.
type AdapterConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AdaptersConfig groups every external dependency's connection settings.
type AdaptersConfig struct {
	LLMText     AdapterConfig `mapstructure:"llm_text"`
	LLMSafety   AdapterConfig `mapstructure:"llm_safety"`
	LLMSeverity AdapterConfig `mapstructure:"llm_severity"`
	OCR         AdapterConfig `mapstructure:"ocr"`
	Intent      AdapterConfig `mapstructure:"intent"`
	STT         AdapterConfig `mapstructure:"stt"`
}

// ServerConfig controls the HTTP/WebSocket listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// ConfirmationConfig tunes the confirmation gate's token TTL and sweep
// interval.
type ConfirmationConfig struct {
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// IdempotencyConfig tunes Fulfillment's retried-confirmation cache.
type IdempotencyConfig struct {
	Window time.Duration `mapstructure:"window"`
}

// LoggingConfig controls capitan's minimum emitted level.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the top-level configuration, maps directly to the YAML file.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Adapters     AdaptersConfig     `mapstructure:"adapters"`
	Confirmation ConfirmationConfig `mapstructure:"confirmation"`
	Idempotency  IdempotencyConfig  `mapstructure:"idempotency"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// envPrefix namespaces every override (ARGOYA_DATABASE_DSN,
// ARGOYA_SERVER_ADDR, ...).
const envPrefix = "ARGOYA"

// Load reads config from a YAML file at path, loading the .env file at
// envPath first when envPath is non-empty (missing .env is not fatal — most
// deployments set real env vars directly) and letting ARGOYA_* environment
// variables override any field.
func Load(path, envPath string) (*Config, error) {
	if envPath != "" {
		_ = godotenv.Load(envPath) // missing .env is expected outside local dev
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.fuzzy_scan_limit", 4000)
	v.SetDefault("confirmation.token_ttl", 5*time.Minute)
	v.SetDefault("confirmation.sweep_interval", 30*time.Second)
	v.SetDefault("idempotency.window", 60*time.Second)
	v.SetDefault("logging.level", "info")
	for _, adapter := range []string{"llm_text", "llm_safety", "llm_severity", "ocr", "intent", "stt"} {
		v.SetDefault("adapters."+adapter+".timeout", 10*time.Second)
	}
}

// Validate checks required fields, a fail-fast pass before the server
// starts serving traffic.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required (set %s_DATABASE_DSN)", envPrefix)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}
