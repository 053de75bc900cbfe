package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/rfprag/internal/domain"
	"github.com/kailas-cloud/rfprag/internal/domain/chunk"
	"github.com/kailas-cloud/rfprag/internal/domain/search/filter"
	"github.com/kailas-cloud/rfprag/internal/domain/search/request"
	"github.com/kailas-cloud/rfprag/internal/domain/search/result"
)

// Outcome is the result of one retrieval call.
type Outcome struct {
	Results   []result.Ranked
	Stats     result.Stats
	Available bool
	Depth     string
}

// Service is the dual-query retrieval engine: it validates the tenant, runs
// the pinned and general sub-queries concurrently, ranks the merged matches
// and sanitizes them.
type Service struct {
	index  VectorIndex
	policy Policy
	logger *zap.Logger

	floor time.Duration
	dims  int
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithResponseFloor sets the minimum duration of a call that reaches the index.
func WithResponseFloor(d time.Duration) Option {
	return func(s *Service) { s.floor = d }
}

// WithDimensions enforces the index dimensionality on query embeddings.
func WithDimensions(n int) Option {
	return func(s *Service) { s.dims = n }
}

// WithClock overrides the clock used for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a retrieval service.
func New(index VectorIndex, policy Policy, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{index: index, policy: policy, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the ranking policy in use.
func (s *Service) Policy() Policy { return s.policy }

// Retrieve returns the ranked, sanitized chunks for a question embedding.
//
// A blank tenant fails with *domain.InvalidTenantError and a malformed request
// with domain.ErrInvalidRequest, both before the index is called. Index
// failures surface as domain.ErrProviderUnavailable; cancellation of ctx
// surfaces as ctx.Err(). An empty result is not an error.
func (s *Service) Retrieve(
	ctx context.Context, embedding []float32, category, tenantID string, opts request.Options,
) (Outcome, error) {
	start := time.Now()

	general, err := filter.ForTenant(tenantID)
	if err != nil {
		return Outcome{}, err
	}

	req, err := request.New(embedding, category, tenantID, opts)
	if err != nil {
		return Outcome{}, err
	}
	if s.dims > 0 && len(req.Embedding()) != s.dims {
		return Outcome{}, fmt.Errorf("%w: expected %d, got %d", domain.ErrVectorDimMismatch, s.dims, len(req.Embedding()))
	}

	var pinnedFilter filter.Expression
	if req.HasPinned() {
		rfp, err := filter.NewMatch(chunk.KeyRfpID, req.PinnedSourceRfpID())
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
		if pinnedFilter, err = filter.ForTenant(tenantID, rfp); err != nil {
			return Outcome{}, err
		}
	}

	pinned, rest, err := s.query(ctx, &req, pinnedFilter, general)
	if err != nil {
		err = s.providerFailure(ctx, err)
		if waitErr := s.waitFloor(ctx, start); waitErr != nil {
			return Outcome{}, waitErr
		}
		return Outcome{}, err
	}

	results, stats := s.policy.rank(tenantID, req.Category(), pinned, rest, req.TopK(), s.now())
	if stats.ForeignDropped > 0 {
		s.logger.Warn("dropped foreign-tenant matches", zap.Int("count", stats.ForeignDropped))
	}
	if stats.Redacted > 0 {
		s.logger.Warn("redacted result text", zap.Int("count", stats.Redacted))
	}

	if err := s.waitFloor(ctx, start); err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Results:   results,
		Stats:     stats,
		Available: result.Available(results, s.policy.AvailabilityThreshold),
		Depth:     string(req.Depth()),
	}, nil
}

// query fans out the sub-queries and waits for both. The pinned slot stays
// empty when nothing is pinned.
func (s *Service) query(
	ctx context.Context, req *request.Request, pinnedFilter, generalFilter filter.Expression,
) ([]chunk.Match, []chunk.Match, error) {
	var pinned, general []chunk.Match

	g, gctx := errgroup.WithContext(ctx)
	if req.HasPinned() {
		g.Go(func() error {
			m, err := s.index.Query(gctx, req.Embedding(), pinnedFilter, req.TopK())
			if err != nil {
				return fmt.Errorf("pinned query: %w", err)
			}
			pinned = m
			return nil
		})
	}
	g.Go(func() error {
		m, err := s.index.Query(gctx, req.Embedding(), generalFilter, req.TopK())
		if err != nil {
			return fmt.Errorf("general query: %w", err)
		}
		general = m
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return pinned, general, nil
}

// providerFailure hides index error details from the caller. A deadline
// hit inside the driver is a provider failure; only ctx's own end passes through.
func (s *Service) providerFailure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.logger.Warn("vector index query failed", zap.Error(err))
	return domain.ErrProviderUnavailable
}

// waitFloor blocks until the response floor has elapsed since start.
func (s *Service) waitFloor(ctx context.Context, start time.Time) error {
	if s.floor <= 0 {
		return nil
	}
	wait := s.floor - time.Since(start)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
