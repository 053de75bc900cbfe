package rfprag

import (
	"context"

	"github.com/kailas-cloud/rfprag/internal/domain/search/request"
	healthuc "github.com/kailas-cloud/rfprag/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/rfprag/internal/usecase/retrieval"
)

type retrieveCall struct {
	embedding []float32
	category  string
	tenantID  string
	opts      request.Options
}

type mockRetriever struct {
	out   retrievaluc.Outcome
	err   error
	calls []retrieveCall
}

func (m *mockRetriever) Retrieve(
	_ context.Context, embedding []float32, category, tenantID string, opts request.Options,
) (retrievaluc.Outcome, error) {
	m.calls = append(m.calls, retrieveCall{embedding, category, tenantID, opts})
	return m.out, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }
