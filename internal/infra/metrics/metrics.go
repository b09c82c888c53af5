// Package metrics exposes Prometheus instrumentation for lifecycle operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fixora/servicebay/internal/domain"
)

// Recorder counts lifecycle outcomes and observes store latency
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewRecorder registers the lifecycle collectors on a fresh registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "servicebay",
			Name:      "lifecycle_operations_total",
			Help:      "Service record lifecycle operations by outcome.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "servicebay",
			Name:      "lifecycle_operation_duration_seconds",
			Help:      "Round-trip time of lifecycle operations against the record store.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	r.registry.MustRegister(
		r.operations,
		r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveOperation implements ports.OperationRecorder
func (r *Recorder) ObserveOperation(operation string, kind domain.ResultKind, duration time.Duration) {
	r.operations.WithLabelValues(operation, string(kind)).Inc()
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
