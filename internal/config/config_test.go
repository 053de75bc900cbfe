package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 8080},
		Index: IndexConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Index.Driver != DriverValkey {
		t.Errorf("Driver = %q, want valkey", cfg.Index.Driver)
	}
	if cfg.Index.Name != "rfprag:chunks:idx" {
		t.Errorf("Name = %q", cfg.Index.Name)
	}
	if !*cfg.Resilience.BreakerEnabled {
		t.Error("breaker should be enabled by default")
	}
	w := cfg.Retrieval.Weights
	if w.Semantic != 0.40 || w.Outcome != 0.25 || w.Recency != 0.15 || w.Quality != 0.20 {
		t.Errorf("Weights = %+v", w)
	}
	if cfg.Retrieval.SourceBoost.Pinned != 1.5 || cfg.Retrieval.CategoryBoost != 1.1 {
		t.Errorf("boosts = %+v / %v", cfg.Retrieval.SourceBoost, cfg.Retrieval.CategoryBoost)
	}
	if cfg.RateLimit.MaxTenants != 0 {
		t.Error("limiter defaults apply only when enabled")
	}
}

func TestApplyDefaults_IndexNamePerDriver(t *testing.T) {
	tests := map[string]string{
		DriverPostgres: "rfp_chunks",
		DriverPinecone: "rfprag",
		DriverMemory:   "rfprag:chunks:idx",
	}
	for driver, want := range tests {
		cfg := Config{Index: IndexConfig{Driver: driver}}
		cfg.ApplyDefaults()
		if cfg.Index.Name != want {
			t.Errorf("%s: Name = %q, want %q", driver, cfg.Index.Name, want)
		}
	}
}

func TestApplyDefaults_RateLimitBurst(t *testing.T) {
	cfg := Config{RateLimit: RateLimitConfig{RPS: 0.5}}
	cfg.ApplyDefaults()
	if cfg.RateLimit.Burst != 1 || cfg.RateLimit.MaxTenants != 10000 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"missing valkey addrs", func(c *Config) { c.Index.Addrs = nil }, "index.addrs"},
		{"unknown driver", func(c *Config) { c.Index.Driver = "faiss" }, "index.driver"},
		{"pinecone without key", func(c *Config) {
			c.Index.Driver = DriverPinecone
			c.Index.Pinecone.Host = "idx.svc.pinecone.io"
		}, "index.pinecone"},
		{"postgres without dsn", func(c *Config) { c.Index.Driver = DriverPostgres }, "index.postgres.dsn"},
		{"memory needs nothing", func(c *Config) {
			c.Index.Driver = DriverMemory
			c.Index.Addrs = nil
		}, ""},
		{"negative dimensions", func(c *Config) { c.Index.Dimensions = -1 }, "index.dimensions"},
		{"negative floor", func(c *Config) { c.Retrieval.ResponseFloorMS = -5 }, "response_floor_ms"},
		{"threshold above 1", func(c *Config) { c.Retrieval.AvailabilityThreshold = 2 }, "availability_threshold"},
		{"negative weight", func(c *Config) { c.Retrieval.Weights.Outcome = -1 }, "weights"},
		{"negative rps", func(c *Config) { c.RateLimit.RPS = -1 }, "rate_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("RFPRAG_TEST_PORT", "9090")
	t.Setenv("RFPRAG_TEST_KEY", "secret")

	data := []byte(`
http:
  port: ${RFPRAG_TEST_PORT}
auth:
  api_keys: ["${RFPRAG_TEST_KEY}"]
index:
  driver: ${RFPRAG_TEST_DRIVER:-memory}
retrieval:
  response_floor_ms: 120
  weights: {semantic: 1}
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("Port = %d", cfg.HTTP.Port)
	}
	if len(cfg.Auth.APIKeys) != 1 || cfg.Auth.APIKeys[0] != "secret" {
		t.Errorf("APIKeys = %v", cfg.Auth.APIKeys)
	}
	if cfg.Index.Driver != DriverMemory {
		t.Errorf("Driver = %q", cfg.Index.Driver)
	}
	if cfg.Retrieval.ResponseFloorMS != 120 {
		t.Errorf("ResponseFloorMS = %d", cfg.Retrieval.ResponseFloorMS)
	}
	if w := cfg.Retrieval.Weights; w.Semantic != 1 || w.Outcome != 0 {
		t.Errorf("partial weights should be kept as written, got %+v", w)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	got := string(expandEnvVars([]byte("a: ${RFPRAG_UNSET_VAR:-fallback}")))
	if got != "a: fallback" {
		t.Errorf("got %q", got)
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("Load(local): %v", err)
	}
	if cfg.Index.Driver == "" {
		t.Error("driver should be set")
	}
}
