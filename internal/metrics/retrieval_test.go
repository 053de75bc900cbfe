package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterRetrievalMetrics_Idempotent(t *testing.T) {
	RegisterRetrievalMetrics()
	RegisterRetrievalMetrics()

	RetrievalRequestsTotal.WithLabelValues("ok", "basic").Inc()
	if v := testutil.ToFloat64(RetrievalRequestsTotal.WithLabelValues("ok", "basic")); v < 1 {
		t.Errorf("expected retrieval_requests_total >= 1, got %f", v)
	}
}

func TestIndexBreakerOpen_Gauge(t *testing.T) {
	IndexBreakerOpen.WithLabelValues("vector_index.query").Set(1)
	if v := testutil.ToFloat64(IndexBreakerOpen.WithLabelValues("vector_index.query")); v != 1 {
		t.Errorf("expected 1, got %f", v)
	}
	IndexBreakerOpen.WithLabelValues("vector_index.query").Set(0)
}
