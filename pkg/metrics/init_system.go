package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initSystemMetrics registers the runtime and process collectors alongside
// the editor's own uptime and build gauges.
func (r *Registry) initSystemMetrics() {
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r.UptimeSeconds = promauto.With(r.registry).NewGauge(prometheus.GaugeOpts{
		Name: "topoeditor_uptime_seconds",
		Help: "Time since the engine started in seconds",
	})

	r.BuildInfo = promauto.With(r.registry).NewGaugeVec(prometheus.GaugeOpts{
		Name: "topoeditor_build_info",
		Help: "Always 1, labelled with the running build",
	}, []string{"version", "commit"})
}
