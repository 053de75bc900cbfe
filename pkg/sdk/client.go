package rfprag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/rfprag/internal/db"
	dbMemory "github.com/kailas-cloud/rfprag/internal/db/memory"
	dbPinecone "github.com/kailas-cloud/rfprag/internal/db/pinecone"
	dbPostgres "github.com/kailas-cloud/rfprag/internal/db/postgres"
	dbValkey "github.com/kailas-cloud/rfprag/internal/db/valkey"
	"github.com/kailas-cloud/rfprag/internal/domain/search/depth"
	"github.com/kailas-cloud/rfprag/internal/domain/search/request"
	"github.com/kailas-cloud/rfprag/internal/domain/search/result"
	chunkrepo "github.com/kailas-cloud/rfprag/internal/repository/chunk"
	"github.com/kailas-cloud/rfprag/internal/resilience"
	healthuc "github.com/kailas-cloud/rfprag/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/rfprag/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// retrieverUseCase is the internal interface for retrieval, replaced in tests.
type retrieverUseCase interface {
	Retrieve(
		ctx context.Context, embedding []float32, category, tenantID string, opts request.Options,
	) (retrievaluc.Outcome, error)
}

// Client is the rfprag SDK entry point.
type Client struct {
	driver    string
	indexName string

	store     db.Store
	retriever retrieverUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the vector index.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{readinessTimeout: defaultReadinessTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("rfprag: vector index required (use WithValkey, WithRedis, WithPinecone, WithPostgres or WithInMemory)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("rfprag: vector index not ready: %w", err)
	}

	return wireClient(store, cfg, obs), nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	if cfg.indexName == "" {
		cfg.indexName = defaultIndexName(cfg.driver)
	}

	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("rfprag: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "pinecone":
		s, err := dbPinecone.NewStore(dbPinecone.Config{Host: cfg.pineconeHost, APIKey: cfg.pineconeAPIKey})
		if err != nil {
			return nil, fmt.Errorf("rfprag: create pinecone store: %w", err)
		}
		return s, nil
	case "postgres":
		sqlDB, err := dbPostgres.OpenDB(dbPostgres.Config{DSN: cfg.postgresDSN})
		if err != nil {
			return nil, fmt.Errorf("rfprag: create postgres store: %w", err)
		}
		return dbPostgres.NewStore(sqlDB), nil
	case "memory":
		s := dbMemory.NewStore(dbMemory.DefaultConfig())
		if cfg.seedFile != "" {
			if _, err := s.LoadFile(cfg.indexName, cfg.seedFile); err != nil {
				return nil, fmt.Errorf("rfprag: load seed file: %w", err)
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("rfprag: unknown driver %q", cfg.driver)
	}
}

func defaultIndexName(driver string) string {
	switch driver {
	case "postgres":
		return "rfp_chunks"
	case "pinecone":
		return "rfprag"
	default:
		return "rfprag:chunks:idx"
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	index := chunkrepo.NewResilient(
		chunkrepo.New(store, cfg.indexName),
		resilience.NewExecutor(resilience.DefaultConfig(), nil),
	)
	svc := retrievaluc.New(index, retrievaluc.DefaultPolicy(), nil,
		retrievaluc.WithResponseFloor(cfg.responseFloor),
		retrievaluc.WithDimensions(cfg.vectorDimensions),
	)

	return &Client{
		driver:    cfg.driver,
		indexName: cfg.indexName,
		store:     store,
		retriever: svc,
		healthSvc: healthuc.New(store, index),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks vector index connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Retrieve returns the ranked context for a question embedding, scoped to tenantID.
// An empty result is not an error.
func (c *Client) Retrieve(
	ctx context.Context, embedding []float32, category, tenantID string, opts ...RetrieveOption,
) (_ Retrieval, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", start, err) }()

	var ro retrieveOptions
	for _, o := range opts {
		o(&ro)
	}

	out, err := c.retriever.Retrieve(ctx, embedding, category, tenantID, request.Options{
		PinnedSourceRfpID: ro.pinnedRfpID,
		Depth:             depth.Depth(ro.depth),
	})
	if err != nil {
		return Retrieval{}, err
	}
	ret := retrievalFromOutcome(&out)
	c.obs.retrieved(&ret)
	return ret, nil
}

func retrievalFromOutcome(out *retrievaluc.Outcome) Retrieval {
	results := make([]Result, len(out.Results))
	for i := range out.Results {
		results[i] = resultFromRanked(&out.Results[i])
	}
	st := out.Stats
	return Retrieval{
		Results: results,
		Stats: Stats{
			Total:          st.Total,
			Pinned:         st.Pinned,
			Support:        st.Support,
			Historical:     st.Historical,
			ForeignDropped: st.ForeignDropped,
			Deduplicated:   st.Deduplicated,
			Redacted:       st.Redacted,
		},
		Available: out.Available,
		Depth:     Depth(out.Depth),
	}
}

func resultFromRanked(r *result.Ranked) Result {
	md := r.Metadata()
	b := r.Breakdown()
	return Result{
		ID:              r.ID(),
		Text:            r.Text(),
		Source:          Source(r.Source()),
		Similarity:      r.Similarity(),
		CompositeScore:  r.CompositeScore(),
		DocumentID:      md.DocumentID,
		TenantID:        md.TenantID,
		Category:        md.Category,
		CreatedAt:       md.CreatedAt,
		DocumentPurpose: md.DocumentPurpose,
		RfpID:           md.RfpID,
		Breakdown: ScoreBreakdown{
			Semantic:      b.Semantic,
			Outcome:       b.Outcome,
			Recency:       b.Recency,
			Quality:       b.Quality,
			SourceBoost:   b.SourceBoost,
			CategoryBoost: b.CategoryBoost,
		},
	}
}
