package chunk

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"

	"github.com/kailas-cloud/rfprag/internal/db"
	domchunk "github.com/kailas-cloud/rfprag/internal/domain/chunk"
	"github.com/kailas-cloud/rfprag/internal/domain/search/filter"
	"github.com/kailas-cloud/rfprag/internal/resilience"
)

// OpQuery is the breaker name for index queries.
const OpQuery = "vector_index.query"

type querier interface {
	Query(ctx context.Context, vector []float32, filters filter.Expression, topK int) ([]domchunk.Match, error)
}

// Resilient decorates a querier with retries and a circuit breaker.
type Resilient struct {
	next querier
	exec *resilience.Executor
}

// NewResilient wraps next with exec.
func NewResilient(next querier, exec *resilience.Executor) *Resilient {
	return &Resilient{next: next, exec: exec}
}

// Query delegates to the wrapped querier under the executor.
func (r *Resilient) Query(ctx context.Context, vector []float32, filters filter.Expression, topK int) ([]domchunk.Match, error) {
	var out []domchunk.Match
	err := r.exec.Execute(ctx, OpQuery, func(ctx context.Context) error {
		var err error
		out, err = r.next.Query(ctx, vector, filters, topK)
		return err
	}, classifyIndexError)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CircuitOpen reports whether index queries are currently being shed.
func (r *Resilient) CircuitOpen() bool {
	return r.exec.State(OpQuery) == gobreaker.StateOpen
}

// classifyIndexError: caller cancellation and refused queries neither retry
// nor count against the breaker; anything else is treated as transient.
func classifyIndexError(err error) resilience.Classification {
	switch {
	case err == nil:
		return resilience.Classification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.Classification{}
	case errors.Is(err, db.ErrInvalidQuery), errors.Is(err, db.ErrRejected):
		return resilience.Classification{}
	default:
		return resilience.Classification{Retryable: true, RecordFailure: true}
	}
}
