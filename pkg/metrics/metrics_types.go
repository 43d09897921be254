package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Topology Metrics
	TopologyElements       *prometheus.GaugeVec
	TopologyRevision       prometheus.Gauge
	TopologyMutationsTotal *prometheus.CounterVec
	RecoveriesTotal        *prometheus.CounterVec

	// Semantic Graph Metrics
	GraphTriples           prometheus.Gauge
	ForwardSyncDuration    prometheus.Histogram
	ForwardSyncErrorsTotal prometheus.Counter
	ReverseLoadsTotal      *prometheus.CounterVec

	// IO-Tool Metrics
	IOToolOperationsTotal     *prometheus.CounterVec
	IOToolOperationDuration   *prometheus.HistogramVec
	IOToolBusyRejectionsTotal *prometheus.CounterVec
	IOToolBusy                prometheus.Gauge

	// Event Stream Metrics
	EventsPublishedTotal prometheus.Counter
	EventsDroppedTotal   prometheus.Counter
	EventSubscribers     prometheus.Gauge

	// System Metrics. Go runtime and process metrics come from the
	// client_golang collectors.
	UptimeSeconds prometheus.Gauge
	BuildInfo     *prometheus.GaugeVec

	startTime time.Time
	registry  *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry:  reg,
		startTime: time.Now(),
	}

	// Initialize all metrics
	r.initHTTPMetrics()
	r.initTopologyMetrics()
	r.initGraphMetrics()
	r.initIOToolMetrics()
	r.initEventMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
