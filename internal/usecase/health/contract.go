package health

import "context"

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter reports whether the index circuit breaker is open.
type BreakerReporter interface {
	CircuitOpen() bool
}
