package chunk

import (
	"context"
	"testing"

	"github.com/kailas-cloud/rfprag/internal/db"
	domchunk "github.com/kailas-cloud/rfprag/internal/domain/chunk"
	"github.com/kailas-cloud/rfprag/internal/domain/search/filter"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

// mockQuerier implements querier for decorator tests.
type mockQuerier struct {
	calls   int
	queryFn func(ctx context.Context, vector []float32, filters filter.Expression, topK int) ([]domchunk.Match, error)
}

func (m *mockQuerier) Query(ctx context.Context, vector []float32, filters filter.Expression, topK int) ([]domchunk.Match, error) {
	m.calls++
	if m.queryFn != nil {
		return m.queryFn(ctx, vector, filters, topK)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "rfprag:chunks:idx"), ms
}

func tenantFilter(t *testing.T, tenant string) filter.Expression {
	t.Helper()
	e, err := filter.ForTenant(tenant)
	if err != nil {
		t.Fatalf("ForTenant: %v", err)
	}
	return e
}
