// Package config loads advisor settings from an optional YAML file, an
// optional .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/catalog"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/llm"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/prompt"
)

const DefaultPath = "advisor.yaml"

const (
	DescriberTemplate = "template"
	DescriberModel    = "model"
)

type Config struct {
	Model   ModelConfig     `yaml:"model"`
	Catalog CatalogConfig   `yaml:"catalog"`
	Prompt  prompt.Template `yaml:"prompt"`
	Server  ServerConfig    `yaml:"server"`
	Redis   RedisConfig     `yaml:"redis"`
	Log     LogConfig       `yaml:"log"`
}

type ModelConfig struct {
	Provider        string        `yaml:"provider"`
	Name            string        `yaml:"name"`
	BaseURL         string        `yaml:"base_url"`
	Temperature     float32       `yaml:"temperature"`
	TopP            float32       `yaml:"top_p"`
	MaxOutputTokens int32         `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`

	// Secrets come from the environment only.
	APIKey string `yaml:"-"`
}

// CatalogConfig drives the builder. Schema, when set, narrows the domain to
// a curated subset.
type CatalogConfig struct {
	Path        string         `yaml:"path"`
	Describer   string         `yaml:"describer"`
	Concurrency int            `yaml:"concurrency"`
	Attempts    int            `yaml:"attempts"`
	Backoff     time.Duration  `yaml:"backoff"`
	AllowGaps   bool           `yaml:"allow_gaps"`
	Limit       int            `yaml:"limit"`
	Schema      *models.Schema `yaml:"schema,omitempty"`
}

type ServerConfig struct {
	Port           string        `yaml:"port"`
	Env            string        `yaml:"env"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	PublicURL      string        `yaml:"public_url"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"-"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Model: ModelConfig{
			Provider:        llm.ProviderGemini,
			Temperature:     0.7,
			TopP:            0.95,
			MaxOutputTokens: 4096,
			Timeout:         60 * time.Second,
		},
		Catalog: CatalogConfig{
			Path:        "personas.json",
			Describer:   DescriberTemplate,
			Concurrency: catalog.DefaultConcurrency,
			Attempts:    catalog.DefaultAttempts,
			Backoff:     catalog.DefaultBackoff,
		},
		Prompt: prompt.DefaultTemplate(),
		Server: ServerConfig{
			Port:           "8080",
			Env:            "development",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			SessionTTL:     2 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "advisor",
			TTL:    7 * 24 * time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads path (missing file is fine when path is DefaultPath), then
// .env, then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// .env is optional; variables already set win.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Prompt = cfg.Prompt.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Model.Provider, "ADVISOR_PROVIDER")
	setString(&c.Model.Name, "ADVISOR_MODEL")
	setString(&c.Model.BaseURL, "OPENAI_BASE_URL")
	setString(&c.Catalog.Path, "ADVISOR_CATALOG")
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.Env, "ADVISOR_ENV")
	setString(&c.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	if v := os.Getenv("ADVISOR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ADVISOR_TIMEOUT: %w", err)
		}
		c.Model.Timeout = d
	}
	if v := os.Getenv("ADVISOR_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ADVISOR_CONCURRENCY: %w", err)
		}
		c.Catalog.Concurrency = n
	}

	switch c.Model.Provider {
	case llm.ProviderOpenAI:
		c.Model.APIKey = os.Getenv("OPENAI_API_KEY")
	default:
		c.Model.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports the first invalid setting. A missing API key is not an
// error here; the model client reports it when it is actually needed.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case llm.ProviderGemini, llm.ProviderOpenAI, llm.ProviderMock:
	default:
		return fmt.Errorf("model.provider must be one of gemini, openai, mock, got %q", c.Model.Provider)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("model.temperature must be between 0 and 2")
	}
	if c.Model.TopP < 0 || c.Model.TopP > 1 {
		return fmt.Errorf("model.top_p must be between 0 and 1")
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model.timeout must be positive")
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	switch c.Catalog.Describer {
	case DescriberTemplate, DescriberModel:
	default:
		return fmt.Errorf("catalog.describer must be template or model, got %q", c.Catalog.Describer)
	}
	if c.Catalog.Concurrency <= 0 {
		return fmt.Errorf("catalog.concurrency must be positive")
	}
	if c.Catalog.Attempts <= 0 {
		return fmt.Errorf("catalog.attempts must be positive")
	}
	if c.Catalog.Limit < 0 {
		return fmt.Errorf("catalog.limit cannot be negative")
	}
	if c.Catalog.Schema != nil {
		if err := c.Catalog.Schema.Validate(); err != nil {
			return fmt.Errorf("catalog.schema: %w", err)
		}
	}
	if c.Prompt.MaxChars < 0 || c.Prompt.MaxHistory < 0 {
		return fmt.Errorf("prompt limits cannot be negative")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

// Schema returns the configured curated schema or the full default domain.
func (c *Config) Schema() models.Schema {
	if c.Catalog.Schema != nil {
		return *c.Catalog.Schema
	}
	return models.DefaultSchema()
}

// LLM returns the provider settings for llm.New.
func (c *Config) LLM() llm.Settings {
	return llm.Settings{
		Provider: c.Model.Provider,
		APIKey:   c.Model.APIKey,
		BaseURL:  c.Model.BaseURL,
		Options: llm.Options{
			Model:           c.Model.Name,
			Temperature:     c.Model.Temperature,
			TopP:            c.Model.TopP,
			MaxOutputTokens: c.Model.MaxOutputTokens,
		},
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}
