package metrics

import (
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordResponseSize records the size of an HTTP response body
func (r *Registry) RecordResponseSize(method, path string, size float64) {
	r.HTTPResponseSizeBytes.WithLabelValues(method, path).Observe(size)
}

// IncHTTPRequestsInFlight marks a request as started
func (r *Registry) IncHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Inc() }

// DecHTTPRequestsInFlight marks a request as finished
func (r *Registry) DecHTTPRequestsInFlight() { r.HTTPRequestsInFlight.Dec() }

// RecordMutation records a topology mutation outcome
func (r *Registry) RecordMutation(operation, status string) {
	r.TopologyMutationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordRecovery records the outcome of a recovery resync
func (r *Registry) RecordRecovery(outcome string) {
	r.RecoveriesTotal.WithLabelValues(outcome).Inc()
}

// UpdateTopologySize sets the element gauges
func (r *Registry) UpdateTopologySize(networks, hosts, links int, revision uint64) {
	r.TopologyElements.WithLabelValues("network").Set(float64(networks))
	r.TopologyElements.WithLabelValues("host").Set(float64(hosts))
	r.TopologyElements.WithLabelValues("link").Set(float64(links))
	r.TopologyRevision.Set(float64(revision))
}

// RecordForwardSync records a forward sync. triples is ignored on error.
func (r *Registry) RecordForwardSync(triples int, duration time.Duration, err error) {
	r.ForwardSyncDuration.Observe(duration.Seconds())
	if err != nil {
		r.ForwardSyncErrorsTotal.Inc()
		return
	}
	r.GraphTriples.Set(float64(triples))
}

// RecordReverseLoad records a reverse load attempt
func (r *Registry) RecordReverseLoad(mode, status string) {
	r.ReverseLoadsTotal.WithLabelValues(mode, status).Inc()
}

// RecordIOToolOperation records a completed IO-Tool operation
func (r *Registry) RecordIOToolOperation(operation, status string, duration time.Duration) {
	r.IOToolOperationsTotal.WithLabelValues(operation, status).Inc()
	r.IOToolOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordIOToolBusy records a request rejected with BUSY
func (r *Registry) RecordIOToolBusy(operation string) {
	r.IOToolBusyRejectionsTotal.WithLabelValues(operation).Inc()
}

// SetIOToolBusy sets the busy gauge
func (r *Registry) SetIOToolBusy(busy bool) {
	if busy {
		r.IOToolBusy.Set(1)
	} else {
		r.IOToolBusy.Set(0)
	}
}

// RecordEventPublished counts a published change event
func (r *Registry) RecordEventPublished() {
	r.EventsPublishedTotal.Inc()
}

// RecordEventDropped counts an event a slow subscriber missed
func (r *Registry) RecordEventDropped() {
	r.EventsDroppedTotal.Inc()
}

// SetEventSubscribers sets the subscriber gauge
func (r *Registry) SetEventSubscribers(n int) {
	r.EventSubscribers.Set(float64(n))
}

// UpdateSystemMetrics refreshes the uptime gauge
func (r *Registry) UpdateSystemMetrics() {
	r.UptimeSeconds.Set(time.Since(r.startTime).Seconds())
}

// SetBuildInfo publishes the running version and commit.
func (r *Registry) SetBuildInfo(version, commit string) {
	r.BuildInfo.Reset()
	r.BuildInfo.WithLabelValues(version, commit).Set(1)
}
