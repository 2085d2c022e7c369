package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/agbru/optix/internal/errors"
	"github.com/agbru/optix/internal/profiler"
)

const namespace = "optix"

// Metrics holds the exporter's Prometheus collectors on a private registry,
// so several exporters (or tests) never collide on registration.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	activeRequests prometheus.Gauge
	requestsTotal  *prometheus.CounterVec
	cpuUsage       prometheus.Gauge
	memoryUsed     prometheus.Gauge
	snapshotsTotal prometheus.Counter
	snapshotErrors *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of HTTP requests currently being served.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cpu_usage_percent",
			Help:      "Global CPU usage from the latest snapshot.",
		}),
		memoryUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_used_bytes",
			Help:      "Used system memory from the latest snapshot.",
		}),
		snapshotsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Successful profiler snapshots.",
		}),
		snapshotErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Failed profiler snapshots, by reason.",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.activeRequests,
		m.requestsTotal,
		m.cpuUsage,
		m.memoryUsed,
		m.snapshotsTotal,
		m.snapshotErrors,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// IncrementActiveRequests increments the active requests gauge.
func (m *Metrics) IncrementActiveRequests() { m.activeRequests.Inc() }

// DecrementActiveRequests decrements the active requests gauge.
func (m *Metrics) DecrementActiveRequests() { m.activeRequests.Dec() }

// ObserveRequest counts one served request.
func (m *Metrics) ObserveRequest(method string, code int) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// ObserveSnapshot records a snapshot outcome. Its signature matches
// profiler.Observer.
func (m *Metrics) ObserveSnapshot(snap profiler.Snapshot, err error) {
	if err != nil {
		m.snapshotErrors.WithLabelValues(errorReason(err)).Inc()
		return
	}
	m.snapshotsTotal.Inc()
	m.cpuUsage.Set(float64(snap.CPUUsage))
	m.memoryUsed.Set(float64(snap.MemoryUsed))
}

// WritePrometheus writes the metrics in Prometheus text format.
func (m *Metrics) WritePrometheus(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

// Gatherer exposes the registry for tests and embedding.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

func errorReason(err error) string {
	var telemErr apperrors.TelemetryError
	switch {
	case errors.Is(err, apperrors.ErrTelemetryUnavailable):
		return "unavailable"
	case errors.Is(err, apperrors.ErrProfilerClosed):
		return "closed"
	case errors.As(err, &telemErr):
		return "telemetry"
	default:
		return "other"
	}
}
