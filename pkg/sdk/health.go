package rfprag

import (
	"context"

	healthuc "github.com/kailas-cloud/rfprag/internal/usecase/health"
)

// HealthStatus is the aggregated state of the vector index behind a Client.
type HealthStatus struct {
	Status string            // "ok", "degraded" (breaker open), "error" (index unreachable)
	Checks map[string]string // "vector_index", "circuit_breaker" → "ok"/"error"/"open"
	Driver string
	Index  string
}

// Healthy reports whether Retrieve calls are expected to reach the index.
func (h HealthStatus) Healthy() bool { return h.Status == string(healthuc.Healthy) }

// Health pings the vector index and reports the circuit breaker state.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for component, res := range report.Checks {
		checks[component] = string(res)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
		Driver: c.driver,
		Index:  c.indexName,
	}
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
