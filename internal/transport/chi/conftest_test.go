package chi

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/rfprag/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/rfprag/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/rfprag/internal/usecase/retrieval"
)

// --- Mocks ---

type retrieveCall struct {
	embedding []float32
	category  string
	tenantID  string
	opts      request.Options
}

type mockRetriever struct {
	mu    sync.Mutex
	calls []retrieveCall
	out   retrievaluc.Outcome
	err   error
}

func (m *mockRetriever) Retrieve(
	_ context.Context, embedding []float32, category, tenantID string, opts request.Options,
) (retrievaluc.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, retrieveCall{embedding, category, tenantID, opts})
	return m.out, m.err
}

func (m *mockRetriever) lastCall() retrieveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

// --- Helpers ---

func newTestRouter(ret retrievaluc.Retriever, pingErr error, opts ...ServerOption) http.Handler {
	srv := NewServer(ret, healthuc.New(&mockPinger{err: pingErr}, nil), nil, opts...)
	r := chi.NewRouter()
	srv.Mount(r)
	return r
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
