package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

func validConfig() Config {
	cfg := Config{HTTP: HTTPConfig{Port: 8000}}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
	expected := "http.port must be between 1 and 65535, got 70000"
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }, "database.driver must be one of"},
		{"redis without addrs", func(c *Config) { c.Database.Driver = DriverRedis }, "database.addrs is required"},
		{"valkey without addrs", func(c *Config) { c.Database.Driver = DriverValkey }, "database.addrs is required"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, "database.dsn is required"},
		{"bad collection", func(c *Config) { c.Database.Collection = "product catalog" }, "database.collection"},
		{"bad algorithm", func(c *Config) { c.Index.Algorithm = "ivf" }, "index.algorithm"},
		{"max tokens over ceiling", func(c *Config) { c.LLM.MaxTokens = 9000 }, "llm.max_tokens must be at most 8000"},
		{"temperature too high", func(c *Config) { c.LLM.Temperature = domain.Temperature(3) }, "llm.temperature"},
		{"negative rate", func(c *Config) { c.LLM.RateLimitRPS = -1 }, "llm.rate_limit_rps"},
		{"bad embedding mode", func(c *Config) { c.Embedding.Mode = "local" }, "embedding.mode"},
		{"cache without redis", func(c *Config) { c.Embedding.Cache.Enabled = true }, "embedding.cache requires"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got error %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_CacheWithValkey(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = DriverValkey
	cfg.Database.Addrs = []string{"localhost:6379"}
	cfg.Embedding.Cache.Enabled = true

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Addr() != "127.0.0.1:8000" {
		t.Errorf("expected 127.0.0.1:8000, got %s", cfg.HTTP.Addr())
	}
	if cfg.Database.Driver != DriverLocal {
		t.Errorf("expected Driver=local, got %q", cfg.Database.Driver)
	}
	if cfg.Database.Collection != "product_catalog" {
		t.Errorf("expected Collection=product_catalog, got %q", cfg.Database.Collection)
	}
	if cfg.LLM.Model != "llama-3.1-70b-versatile" {
		t.Errorf("expected default model, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTokens != 4096 {
		t.Errorf("expected MaxTokens=4096, got %d", cfg.LLM.MaxTokens)
	}
	if *cfg.LLM.Temperature != 0.7 {
		t.Errorf("expected Temperature=0.7, got %v", *cfg.LLM.Temperature)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("expected Dimensions=384, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.BatchSize != 32 {
		t.Errorf("expected BatchSize=32, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Ingest.Workers != 4 {
		t.Errorf("expected Workers=4, got %d", cfg.Ingest.Workers)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Embedding.BaseURL != cfg.LLM.BaseURL {
		t.Errorf("expected embedding base_url to inherit llm base_url, got %q", cfg.Embedding.BaseURL)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		LLM:       LLMConfig{Model: "gpt-4o-mini", Temperature: domain.Temperature(0)},
		Embedding: EmbeddingConfig{BatchSize: 8},
		Ingest:    IngestConfig{Workers: 2},
	}
	cfg.ApplyDefaults()

	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected model to be kept, got %q", cfg.LLM.Model)
	}
	if *cfg.LLM.Temperature != 0 {
		t.Errorf("explicit zero temperature must be kept, got %v", *cfg.LLM.Temperature)
	}
	if cfg.Embedding.BatchSize != 8 || cfg.Ingest.Workers != 2 {
		t.Errorf("expected explicit sizes to be kept, got %d/%d", cfg.Embedding.BatchSize, cfg.Ingest.Workers)
	}
}

func TestLoadFile_ExpandsEnv(t *testing.T) {
	t.Setenv("CATALOG_TEST_LLM_KEY", "secret")

	path := filepath.Join(t.TempDir(), "test.yaml")
	data := "http:\n  port: 9000\nllm:\n  api_key: ${CATALOG_TEST_LLM_KEY}\n  model: ${CATALOG_TEST_MODEL:-llama-3.1-8b-instant}\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.HTTP.Port)
	}
	if cfg.LLM.APIKey != "secret" || cfg.Embedding.APIKey != "secret" {
		t.Errorf("expected expanded api keys, got %q / %q", cfg.LLM.APIKey, cfg.Embedding.APIKey)
	}
	if cfg.LLM.Model != "llama-3.1-8b-instant" {
		t.Errorf("expected default from expansion, got %q", cfg.LLM.Model)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: mongo\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if GetEnv() != "local" {
		t.Errorf("expected local, got %q", GetEnv())
	}
	t.Setenv("ENV", "prod")
	if GetEnv() != "prod" {
		t.Errorf("expected prod, got %q", GetEnv())
	}
}

func TestLoad_ShippedConfigs(t *testing.T) {
	tests := []struct {
		env    string
		driver string
		cache  bool
		host   string
	}{
		{"local", DriverLocal, false, "127.0.0.1"},
		{"prod", DriverRedis, true, "0.0.0.0"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			for _, v := range []string{"DB_DRIVER", "EMBEDDING_CACHE", "PORT", "EMBEDDING_MODE", "HOST"} {
				t.Setenv(v, "")
			}
			cfg, err := Load(tt.env)
			if err != nil {
				t.Fatalf("load %s: %v", tt.env, err)
			}
			if cfg.Database.Driver != tt.driver || cfg.Embedding.Cache.Enabled != tt.cache {
				t.Errorf("unexpected database/cache: %q/%v", cfg.Database.Driver, cfg.Embedding.Cache.Enabled)
			}
			if cfg.Embedding.Dimensions != domain.DefaultDimensions || cfg.Retrieval.TopK != 5 {
				t.Errorf("unexpected embedding/retrieval settings: %+v %+v", cfg.Embedding, cfg.Retrieval)
			}
			if cfg.HTTP.Host != tt.host {
				t.Errorf("expected host %s, got %s", tt.host, cfg.HTTP.Host)
			}
		})
	}
}

func TestLoad_LocalIsLoopbackOnly(t *testing.T) {
	t.Setenv("HOST", "")
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("load local: %v", err)
	}
	if len(cfg.Auth.APIKeys) != 0 {
		t.Fatalf("expected no api keys in local config, got %d", len(cfg.Auth.APIKeys))
	}
	if cfg.OpenToNetwork() {
		t.Errorf("local config must not expose unauthenticated routes on %s", cfg.HTTP.Addr())
	}
}

func TestOpenToNetwork(t *testing.T) {
	tests := []struct {
		name string
		host string
		keys []string
		want bool
	}{
		{"loopback v4", "127.0.0.1", nil, false},
		{"loopback v6", "::1", nil, false},
		{"localhost", "localhost", nil, false},
		{"all interfaces", "0.0.0.0", nil, true},
		{"blank key", "0.0.0.0", []string{"  "}, true},
		{"all interfaces with key", "0.0.0.0", []string{"secret"}, false},
		{"hostname", "catalog.internal", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{HTTP: HTTPConfig{Host: tt.host, Port: 8000}, Auth: AuthConfig{APIKeys: tt.keys}}
			if got := cfg.OpenToNetwork(); got != tt.want {
				t.Errorf("OpenToNetwork() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPConfig_AddrIPv6(t *testing.T) {
	if got := (HTTPConfig{Host: "::1", Port: 9000}).Addr(); got != "[::1]:9000" {
		t.Errorf("Addr() = %q", got)
	}
}
