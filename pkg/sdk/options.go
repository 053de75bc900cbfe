package rfprag

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // valkey, redis, pinecone, postgres, memory
	addrs    []string
	password string

	pineconeHost   string
	pineconeAPIKey string
	postgresDSN    string
	seedFile       string

	indexName        string
	vectorDimensions int
	responseFloor    time.Duration
	readinessTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to query a Valkey instance with valkey-search.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to query a Redis 8 instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithPinecone configures the client to query a Pinecone index host.
// The index name is used as the namespace.
func WithPinecone(host, apiKey string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "pinecone"
		c.pineconeHost = host
		c.pineconeAPIKey = apiKey
	})
}

// WithPostgres configures the client to query a pgvector table.
// The index name is used as the table name.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "postgres"
		c.postgresDSN = dsn
	})
}

// WithInMemory uses an in-process HNSW index, loaded from a JSON seed file
// when seedFile is not empty.
func WithInMemory(seedFile string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
		c.seedFile = seedFile
	})
}

// WithIndexName overrides the index, table or namespace name.
func WithIndexName(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
	})
}

// WithVectorDimensions rejects query embeddings of any other length.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithResponseFloor makes every Retrieve call that reaches the index take at
// least d.
func WithResponseFloor(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.responseFloor = d
	})
}

// WithReadinessTimeout bounds the initial connectivity check. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
