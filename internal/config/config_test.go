package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ADVISOR_PROVIDER", "ADVISOR_MODEL", "OPENAI_BASE_URL", "ADVISOR_CATALOG",
		"PORT", "ADVISOR_ENV", "LOG_LEVEL", "REDIS_ADDRESS", "REDIS_PASSWORD",
		"ADVISOR_TIMEOUT", "ADVISOR_CONCURRENCY", "GEMINI_API_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(k, "")
	}
	// keep a stray .env in the repo from leaking into tests
	t.Chdir(t.TempDir())
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "advisor.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.Provider != "gemini" || cfg.Catalog.Describer != DescriberTemplate {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Schema().Size() != models.DefaultSchema().Size() {
		t.Fatalf("expected full domain schema")
	}
	if cfg.Prompt.Instructions == "" {
		t.Fatalf("prompt template defaults missing")
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
model:
  provider: openai
  name: gpt-4o-mini
  timeout: 15s
catalog:
  path: data/personas.json
  describer: model
  limit: 50
  schema:
    categories: [cafe, pub]
    franchise: [false]
    new_store: [true, false]
    sizes: [small]
    age_bands: [20s]
    segments: [students, regulars]
prompt:
  max_chars: 12000
server:
  port: "9090"
`)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "7070")
	t.Setenv("REDIS_ADDRESS", "redis:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.Name != "gpt-4o-mini" || cfg.Model.Timeout != 15*time.Second {
		t.Fatalf("model section not applied: %+v", cfg.Model)
	}
	if cfg.Model.APIKey != "sk-test" {
		t.Fatalf("expected OpenAI key from env")
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("env PORT must override file, got %s", cfg.Server.Port)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("REDIS_ADDRESS should enable redis: %+v", cfg.Redis)
	}
	if got := cfg.Schema().Size(); got != 8 {
		t.Fatalf("expected curated schema of 8 combinations, got %d", got)
	}
	if cfg.Prompt.MaxChars != 12000 || cfg.Prompt.Preamble == "" {
		t.Fatalf("prompt section should merge over defaults: %+v", cfg.Prompt)
	}
	if s := cfg.LLM(); s.Provider != "openai" || s.Options.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected llm settings %+v", s)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"provider", func(c *Config) { c.Model.Provider = "claude" }, "model.provider"},
		{"temperature", func(c *Config) { c.Model.Temperature = 3 }, "model.temperature"},
		{"timeout", func(c *Config) { c.Model.Timeout = 0 }, "model.timeout"},
		{"describer", func(c *Config) { c.Catalog.Describer = "llm" }, "catalog.describer"},
		{"concurrency", func(c *Config) { c.Catalog.Concurrency = 0 }, "catalog.concurrency"},
		{"schema", func(c *Config) { c.Catalog.Schema = &models.Schema{} }, "catalog.schema"},
		{"redis", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis.addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestBadDurationEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADVISOR_TIMEOUT", "soon")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for bad ADVISOR_TIMEOUT")
	}
}
