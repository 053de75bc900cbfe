package retrieval

import (
	"context"

	"github.com/kailas-cloud/rfprag/internal/domain/chunk"
	"github.com/kailas-cloud/rfprag/internal/domain/search/filter"
	"github.com/kailas-cloud/rfprag/internal/domain/search/request"
)

// VectorIndex runs one filtered similarity query.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, filters filter.Expression, topK int) ([]chunk.Match, error)
}

// Retriever is the retrieval entry point shared by Service and its decorators.
type Retriever interface {
	Retrieve(
		ctx context.Context, embedding []float32, category, tenantID string, opts request.Options,
	) (Outcome, error)
}
