package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
)

// Metrics holds the collectors exported by the service.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	schema     *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bunstore_operations_total",
				Help: "Total number of collection operations by result",
			},
			[]string{"collection", "operation", "result"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bunstore_operation_duration_seconds",
				Help:    "Latency of collection operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		schema: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bunstore_schema_changes_total",
				Help: "Total number of fields added to or removed from collections",
			},
			[]string{"collection", "change"},
		),
	}
}

// Observe records one finished operation. Names of collections that do not
// exist are recorded as "unknown" to keep the label set bounded.
func (m *Metrics) Observe(collectionName, operation string, started time.Time, err error) {
	if collectionName == "" || errors.Is(err, collection.ErrCollectionNotFound) {
		collectionName = "unknown"
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(collectionName, operation, result).Inc()
	m.latency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// SchemaChanged is a collection.WithSchemaHook callback.
func (m *Metrics) SchemaChanged(change collection.SchemaChange) {
	kind := "field_added"
	if change.Removed {
		kind = "field_removed"
	}
	m.schema.WithLabelValues(change.Collection, kind).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the Prometheus HTTP handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
