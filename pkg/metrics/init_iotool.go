package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initIOToolMetrics() {
	r.IOToolOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "topoeditor_iotool_operations_total",
			Help: "Total number of IO-Tool operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	r.IOToolOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "topoeditor_iotool_operation_duration_seconds",
			Help:    "IO-Tool operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	r.IOToolBusyRejectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "topoeditor_iotool_busy_rejections_total",
			Help: "Total number of IO-Tool requests rejected because an operation was in flight",
		},
		[]string{"operation"},
	)

	r.IOToolBusy = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "topoeditor_iotool_busy",
			Help: "Whether an IO-Tool operation is in flight (1 = busy)",
		},
	)
}

func (r *Registry) initEventMetrics() {
	r.EventsPublishedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "topoeditor_events_published_total",
			Help: "Total number of topology change events published",
		},
	)

	r.EventsDroppedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "topoeditor_events_dropped_total",
			Help: "Total number of events dropped because a subscriber was slow",
		},
	)

	r.EventSubscribers = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "topoeditor_event_subscribers",
			Help: "Current number of event stream subscribers",
		},
	)
}
