package retrieval

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rfprag/internal/domain"
	"github.com/kailas-cloud/rfprag/internal/domain/search/request"
	"github.com/kailas-cloud/rfprag/internal/domain/search/source"
	"github.com/kailas-cloud/rfprag/internal/metrics"
)

// Retrieval outcome labels.
const (
	OutcomeOK             = "ok"
	OutcomeEmpty          = "empty"
	OutcomeInvalidTenant  = "invalid_tenant"
	OutcomeInvalidRequest = "invalid_request"
	OutcomeProviderError  = "provider_error"
	OutcomeCanceled       = "canceled"
	OutcomeError          = "error"
)

// InstrumentedRetriever wraps a Retriever with metrics and logging.
// Neither carries the tenant id.
type InstrumentedRetriever struct {
	inner  Retriever
	logger *zap.Logger
}

// NewInstrumentedRetriever wraps inner.
func NewInstrumentedRetriever(inner Retriever, logger *zap.Logger) *InstrumentedRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedRetriever{inner: inner, logger: logger}
}

// Retrieve delegates to the inner retriever and records the call.
func (r *InstrumentedRetriever) Retrieve(
	ctx context.Context, embedding []float32, category, tenantID string, opts request.Options,
) (Outcome, error) {
	start := time.Now()

	out, err := r.inner.Retrieve(ctx, embedding, category, tenantID, opts)

	duration := time.Since(start)
	label := outcomeLabel(out, err)

	depth := out.Depth
	if depth == "" {
		depth = "unknown"
	}
	metrics.RetrievalRequestsTotal.WithLabelValues(label, depth).Inc()
	metrics.RetrievalDuration.WithLabelValues(label).Observe(duration.Seconds())

	if err != nil {
		r.logger.Debug("Retrieval failed",
			zap.String("outcome", label),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return out, err
	}

	st := out.Stats
	metrics.RetrievalResultsTotal.WithLabelValues(string(source.Pinned)).Add(float64(st.Pinned))
	metrics.RetrievalResultsTotal.WithLabelValues(string(source.Support)).Add(float64(st.Support))
	metrics.RetrievalResultsTotal.WithLabelValues(string(source.Historical)).Add(float64(st.Historical))
	metrics.RetrievalForeignDroppedTotal.Add(float64(st.ForeignDropped))
	metrics.RetrievalDeduplicatedTotal.Add(float64(st.Deduplicated))
	metrics.RetrievalRedactionsTotal.Add(float64(st.Redacted))

	r.logger.Debug("Retrieval completed",
		zap.String("outcome", label),
		zap.String("depth", depth),
		zap.Duration("duration", duration),
		zap.Int("total", st.Total),
		zap.Int("pinned", st.Pinned),
		zap.Int("support", st.Support),
		zap.Int("historical", st.Historical),
		zap.Int("deduplicated", st.Deduplicated),
		zap.Bool("available", out.Available),
	)

	return out, nil
}

func outcomeLabel(out Outcome, err error) string {
	switch {
	case err == nil && len(out.Results) == 0:
		return OutcomeEmpty
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrInvalidTenant):
		return OutcomeInvalidTenant
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrVectorDimMismatch):
		return OutcomeInvalidRequest
	case errors.Is(err, domain.ErrProviderUnavailable):
		return OutcomeProviderError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
