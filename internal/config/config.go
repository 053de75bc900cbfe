package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Index drivers.
const (
	DriverValkey   = "valkey"
	DriverRedis    = "redis"
	DriverPinecone = "pinecone"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the rfprag API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Index      IndexConfig      `yaml:"index"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// RateLimitConfig holds the per-tenant request limiter. RPS 0 disables it.
type RateLimitConfig struct {
	RPS        float64 `yaml:"rps"`
	Burst      int     `yaml:"burst"`
	MaxTenants int     `yaml:"max_tenants"`
}

// IndexConfig selects and configures the vector index backend.
// Name is the FT index for valkey/redis, the table for postgres,
// the namespace for pinecone and the in-process index key for memory.
type IndexConfig struct {
	Driver           string         `yaml:"driver"`
	Name             string         `yaml:"name"`
	Dimensions       int            `yaml:"dimensions"`
	Addrs            []string       `yaml:"addrs"`
	Username         string         `yaml:"username"`
	Password         string         `yaml:"password"`
	DB               int            `yaml:"db"`
	ReadinessTimeout int            `yaml:"readiness_timeout_sec"`
	Pinecone         PineconeConfig `yaml:"pinecone"`
	Postgres         PostgresConfig `yaml:"postgres"`
	Memory           MemoryConfig   `yaml:"memory"`
}

// PineconeConfig holds Pinecone data-plane settings.
type PineconeConfig struct {
	Host       string `yaml:"host"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// PostgresConfig holds pgvector connection settings.
type PostgresConfig struct {
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
}

// MemoryConfig holds in-process HNSW settings.
type MemoryConfig struct {
	M         int    `yaml:"m"`
	EfSearch  int    `yaml:"ef_search"`
	Overfetch int    `yaml:"overfetch"`
	SeedFile  string `yaml:"seed_file"`
}

// ResilienceConfig holds retry and circuit breaker settings for index calls.
type ResilienceConfig struct {
	RetryMaxAttempts      int     `yaml:"retry_max_attempts"`
	RetryInitialBackoffMS int     `yaml:"retry_initial_backoff_ms"`
	RetryMaxBackoffMS     int     `yaml:"retry_max_backoff_ms"`
	RetryMultiplier       float64 `yaml:"retry_multiplier"`
	BreakerEnabled        *bool   `yaml:"breaker_enabled"` // default: true
	BreakerMinRequests    uint32  `yaml:"breaker_min_requests"`
	BreakerFailureRatio   float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeoutSec int     `yaml:"breaker_open_timeout_sec"`
	BreakerHalfOpenCalls  uint32  `yaml:"breaker_half_open_max_calls"`
}

// RetrievalConfig holds the ranking policy and the response floor.
type RetrievalConfig struct {
	ResponseFloorMS       int               `yaml:"response_floor_ms"`
	AvailabilityThreshold float64           `yaml:"availability_threshold"`
	CategoryBoost         float64           `yaml:"category_boost"`
	RecencyHalfLifeDays   float64           `yaml:"recency_half_life_days"`
	NeutralRecency        float64           `yaml:"neutral_recency"`
	DefaultQuality        float64           `yaml:"default_quality"`
	Weights               WeightsConfig     `yaml:"weights"`
	SourceBoost           SourceBoostConfig `yaml:"source_boost"`
}

// WeightsConfig holds composite score weights.
type WeightsConfig struct {
	Semantic float64 `yaml:"semantic"`
	Outcome  float64 `yaml:"outcome"`
	Recency  float64 `yaml:"recency"`
	Quality  float64 `yaml:"quality"`
}

// SourceBoostConfig holds provenance multipliers.
type SourceBoostConfig struct {
	Pinned     float64 `yaml:"pinned"`
	Support    float64 `yaml:"support"`
	Historical float64 `yaml:"historical"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, substitutes ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.RateLimit.RPS > 0 {
		if c.RateLimit.Burst <= 0 {
			c.RateLimit.Burst = int(c.RateLimit.RPS)
			if c.RateLimit.Burst < 1 {
				c.RateLimit.Burst = 1
			}
		}
		if c.RateLimit.MaxTenants <= 0 {
			c.RateLimit.MaxTenants = 10000
		}
	}

	c.applyIndexDefaults()
	c.applyResilienceDefaults()
	c.applyRetrievalDefaults()
}

func (c *Config) applyIndexDefaults() {
	ix := &c.Index
	if ix.Driver == "" {
		ix.Driver = DriverValkey
	}
	if ix.Name == "" {
		switch ix.Driver {
		case DriverPostgres:
			ix.Name = "rfp_chunks"
		case DriverPinecone:
			ix.Name = "rfprag"
		default:
			ix.Name = "rfprag:chunks:idx"
		}
	}
	if ix.ReadinessTimeout <= 0 {
		ix.ReadinessTimeout = 10
	}
	if ix.Pinecone.TimeoutSec <= 0 {
		ix.Pinecone.TimeoutSec = 10
	}
	if ix.Postgres.MaxOpenConns <= 0 {
		ix.Postgres.MaxOpenConns = 10
	}
	if ix.Postgres.ConnMaxLifetimeSec <= 0 {
		ix.Postgres.ConnMaxLifetimeSec = 300
	}
	if ix.Memory.M <= 0 {
		ix.Memory.M = 16
	}
	if ix.Memory.EfSearch <= 0 {
		ix.Memory.EfSearch = 64
	}
	if ix.Memory.Overfetch <= 0 {
		ix.Memory.Overfetch = 4
	}
}

func (c *Config) applyResilienceDefaults() {
	r := &c.Resilience
	if r.RetryMaxAttempts <= 0 {
		r.RetryMaxAttempts = 2
	}
	if r.RetryInitialBackoffMS <= 0 {
		r.RetryInitialBackoffMS = 50
	}
	if r.RetryMaxBackoffMS <= 0 {
		r.RetryMaxBackoffMS = 200
	}
	if r.RetryMultiplier <= 1 {
		r.RetryMultiplier = 2
	}
	if r.BreakerEnabled == nil {
		enabled := true
		r.BreakerEnabled = &enabled
	}
	if r.BreakerMinRequests == 0 {
		r.BreakerMinRequests = 10
	}
	if r.BreakerFailureRatio <= 0 {
		r.BreakerFailureRatio = 0.5
	}
	if r.BreakerOpenTimeoutSec <= 0 {
		r.BreakerOpenTimeoutSec = 30
	}
	if r.BreakerHalfOpenCalls == 0 {
		r.BreakerHalfOpenCalls = 2
	}
}

// Zero values fall back to the production ranking policy.
func (c *Config) applyRetrievalDefaults() {
	r := &c.Retrieval
	setDefault(&r.AvailabilityThreshold, 0.4)
	setDefault(&r.CategoryBoost, 1.1)
	setDefault(&r.RecencyHalfLifeDays, 180)
	setDefault(&r.NeutralRecency, 0.5)
	setDefault(&r.DefaultQuality, 70)
	if r.Weights == (WeightsConfig{}) {
		r.Weights = WeightsConfig{Semantic: 0.40, Outcome: 0.25, Recency: 0.15, Quality: 0.20}
	}
	setDefault(&r.SourceBoost.Pinned, 1.5)
	setDefault(&r.SourceBoost.Support, 1.2)
	setDefault(&r.SourceBoost.Historical, 1.0)
}

func setDefault(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.RateLimit.RPS < 0 {
		return errors.New("rate_limit.rps must not be negative")
	}
	if err := c.Index.validate(); err != nil {
		return err
	}
	return c.Retrieval.validate()
}

func (ix *IndexConfig) validate() error {
	if ix.Dimensions < 0 {
		return fmt.Errorf("index.dimensions must not be negative, got %d", ix.Dimensions)
	}
	switch ix.Driver {
	case DriverValkey, DriverRedis:
		if len(ix.Addrs) == 0 {
			return errors.New("index.addrs is required")
		}
	case DriverPinecone:
		if ix.Pinecone.Host == "" || ix.Pinecone.APIKey == "" {
			return errors.New("index.pinecone.host and index.pinecone.api_key are required")
		}
	case DriverPostgres:
		if ix.Postgres.DSN == "" {
			return errors.New("index.postgres.dsn is required")
		}
	case DriverMemory:
		// ok
	default:
		return fmt.Errorf("index.driver must be one of valkey, redis, pinecone, postgres, memory, got %q", ix.Driver)
	}
	return nil
}

func (r *RetrievalConfig) validate() error {
	if r.ResponseFloorMS < 0 {
		return errors.New("retrieval.response_floor_ms must not be negative")
	}
	if r.AvailabilityThreshold < 0 || r.AvailabilityThreshold > 1 {
		return fmt.Errorf("retrieval.availability_threshold must be within [0, 1], got %v", r.AvailabilityThreshold)
	}
	w := r.Weights
	if w.Semantic < 0 || w.Outcome < 0 || w.Recency < 0 || w.Quality < 0 {
		return errors.New("retrieval.weights must be non-negative")
	}
	b := r.SourceBoost
	if b.Pinned < 0 || b.Support < 0 || b.Historical < 0 || r.CategoryBoost < 0 {
		return errors.New("retrieval boosts must not be negative")
	}
	return nil
}

// ReadinessTimeoutDuration returns the index readiness wait.
func (ix *IndexConfig) ReadinessTimeoutDuration() time.Duration {
	return time.Duration(ix.ReadinessTimeout) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to this source file: internal/config -> project root
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
