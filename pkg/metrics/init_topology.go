package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTopologyMetrics() {
	r.TopologyElements = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "topoeditor_topology_elements",
			Help: "Number of elements in the topology store by kind",
		},
		[]string{"kind"},
	)

	r.TopologyRevision = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "topoeditor_topology_revision",
			Help: "Number of mutations applied to the topology store",
		},
	)

	r.TopologyMutationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "topoeditor_topology_mutations_total",
			Help: "Total number of topology mutations by operation and status",
		},
		[]string{"operation", "status"},
	)

	r.RecoveriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "topoeditor_recoveries_total",
			Help: "Total number of recovery attempts after unexpected mutation failures",
		},
		[]string{"outcome"},
	)
}

func (r *Registry) initGraphMetrics() {
	r.GraphTriples = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "topoeditor_graph_triples",
			Help: "Number of triples in the current semantic graph",
		},
	)

	r.ForwardSyncDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "topoeditor_forward_sync_duration_seconds",
			Help:    "Time to derive the semantic graph from the topology store",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	r.ForwardSyncErrorsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "topoeditor_forward_sync_errors_total",
			Help: "Total number of failed forward syncs",
		},
	)

	r.ReverseLoadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "topoeditor_reverse_loads_total",
			Help: "Total number of reverse loads by mode and status",
		},
		[]string{"mode", "status"},
	)
}
