package rfprag

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	retrievals *prometheus.CounterVec
	results    *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfprag",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Total SDK operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rfprag",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfprag",
			Subsystem: "sdk",
			Name:      "retrievals_total",
			Help:      "Successful Retrieve calls by depth and availability.",
		}, []string{"depth", "available"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rfprag",
			Subsystem: "sdk",
			Name:      "results_total",
			Help:      "Ranked results returned by Retrieve, by provenance.",
		}, []string{"source"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.retrievals); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.results); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("rfprag: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("rfprag: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for SDK operations.
// Tenant ids are never logged.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger != nil {
		if err != nil {
			o.logger.Warn("operation failed",
				"op", op,
				"duration", dur,
				"error", err,
			)
		} else {
			o.logger.Debug("operation completed",
				"op", op,
				"duration", dur,
			)
		}
	}
}

// retrieved records the shape of a successful retrieval. Tenant ids never
// become labels or log fields.
func (o *observer) retrieved(r *Retrieval) {
	if o == nil {
		return
	}
	if o.metrics != nil {
		o.metrics.retrievals.WithLabelValues(string(r.Depth), strconv.FormatBool(r.Available)).Inc()
		o.metrics.results.WithLabelValues(string(SourcePinned)).Add(float64(r.Stats.Pinned))
		o.metrics.results.WithLabelValues(string(SourceSupport)).Add(float64(r.Stats.Support))
		o.metrics.results.WithLabelValues(string(SourceHistorical)).Add(float64(r.Stats.Historical))
	}
	if o.logger != nil && r.Stats.ForeignDropped > 0 {
		o.logger.Warn("dropped foreign-tenant matches",
			"depth", r.Depth,
			"count", r.Stats.ForeignDropped,
		)
	}
}
