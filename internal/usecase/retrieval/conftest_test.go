package retrieval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/rfprag/internal/domain/chunk"
	"github.com/kailas-cloud/rfprag/internal/domain/search/filter"
)

// tenantOf returns the tenant a sub-query filter is scoped to.
func tenantOf(e filter.Expression) (string, bool) {
	for _, c := range e.Must() {
		if c.Key() == filter.TenantKey && c.IsMatch() {
			return c.Match(), true
		}
	}
	return "", false
}

// --- Mocks ---

type indexCall struct {
	filters filter.Expression
	topK    int
}

// mockIndex implements VectorIndex. It is called from two goroutines.
type mockIndex struct {
	mu      sync.Mutex
	calls   []indexCall
	queryFn func(ctx context.Context, filters filter.Expression, topK int) ([]chunk.Match, error)
}

func (m *mockIndex) Query(ctx context.Context, _ []float32, filters filter.Expression, topK int) ([]chunk.Match, error) {
	m.mu.Lock()
	m.calls = append(m.calls, indexCall{filters: filters, topK: topK})
	m.mu.Unlock()
	if m.queryFn != nil {
		return m.queryFn(ctx, filters, topK)
	}
	return nil, nil
}

func (m *mockIndex) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockIndex) snapshot() []indexCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]indexCall(nil), m.calls...)
}

// --- Helpers ---

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(idx VectorIndex, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(idx, DefaultPolicy(), nil, opts...)
}

func testEmbedding() []float32 {
	return []float32{0.1, 0.2, 0.3, 0.4}
}

func match(id, tenant string, score float64, md chunk.Metadata) chunk.Match {
	md.TenantID = tenant
	if md.DocumentID == "" {
		md.DocumentID = "doc-" + id
	}
	if md.Text == "" {
		md.Text = "text of " + id
	}
	return chunk.New(id, score, md)
}

// isPinnedQuery reports whether a sub-query carries the rfpId condition.
func isPinnedQuery(e filter.Expression) bool {
	for _, c := range e.Must() {
		if c.Key() == chunk.KeyRfpID {
			return true
		}
	}
	return false
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
