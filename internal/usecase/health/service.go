package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the index answers but calls are being shed.
	Degraded Status = "degraded"
	// Unhealthy indicates the index is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckOpen indicates an open circuit breaker.
	CheckOpen CheckResult = "open"
)

// Component names.
const (
	ComponentIndex   = "vector_index"
	ComponentBreaker = "circuit_breaker"
)

const defaultPingTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index   IndexPinger
	breaker BreakerReporter
	timeout time.Duration
}

// New creates a Service. breaker can be nil.
func New(index IndexPinger, breaker BreakerReporter) *Service {
	return &Service{index: index, breaker: breaker, timeout: defaultPingTimeout}
}

// Check pings the vector index and inspects the breaker.
// Error details are not part of the report.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 2)
	status := Healthy

	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.index.Ping(pingCtx); err != nil {
		checks[ComponentIndex] = CheckError
		status = Unhealthy
	} else {
		checks[ComponentIndex] = CheckOK
	}

	if s.breaker != nil {
		if s.breaker.CircuitOpen() {
			checks[ComponentBreaker] = CheckOpen
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks[ComponentBreaker] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
