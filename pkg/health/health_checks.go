package health

import (
	"runtime"

	"github.com/dd0wney/cluso-topology/pkg/graphsync"
	"github.com/dd0wney/cluso-topology/pkg/iotool"
	"github.com/dd0wney/cluso-topology/pkg/topology"
)

// TopologyCheck reports the size and revision of the topology store.
func TopologyCheck(store *topology.Store) CheckFunc {
	return func() Check {
		snap := store.Snapshot()
		return Check{
			Name:    "topology",
			Status:  StatusHealthy,
			Message: "Topology store available",
			Details: map[string]any{
				"topology_id": snap.TopologyID,
				"revision":    snap.Revision,
				"networks":    len(snap.Networks),
				"hosts":       len(snap.Hosts),
				"links":       len(snap.Links),
			},
		}
	}
}

// IOToolCheck reports the gateway session. An operation in flight or an
// unreachable tool on the last call degrades the check.
func IOToolCheck(gateway *iotool.Gateway) CheckFunc {
	return func() Check {
		session := gateway.Session()
		check := Check{
			Name: "iotool",
			Details: map[string]any{
				"state":          session.StateName,
				"last_operation": string(session.LastOperation),
				"return_code":    session.ReturnCode,
			},
		}

		switch {
		case session.State == iotool.StateBusy:
			check.Status = StatusDegraded
			check.Message = "Operation in flight"
		case session.ReturnCode == iotool.CodeUnreachable:
			check.Status = StatusDegraded
			check.Message = "IO-Tool unreachable on last operation"
		default:
			check.Status = StatusHealthy
			check.Message = "IO-Tool idle"
		}
		return check
	}
}

// GraphCheck reports whether the semantic graph reflects the latest store
// revision. A lagging graph is degraded, since the next mutation or a
// resync re-derives it.
func GraphCheck(sync *graphsync.Synchronizer) CheckFunc {
	return func() Check {
		model := sync.Model()
		check := Check{
			Name: "graph",
			Details: map[string]any{
				"triples":        model.Current().Len(),
				"graph_revision": model.Revision(),
				"store_revision": sync.Store().Revision(),
			},
		}
		if sync.InSync() {
			check.Status = StatusHealthy
			check.Message = "Semantic graph in sync"
		} else {
			check.Status = StatusDegraded
			check.Message = "Semantic graph behind topology store"
		}
		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck() CheckFunc {
	return func() Check {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		check := Check{
			Name: "memory",
			Details: map[string]any{
				"alloc_bytes": m.Alloc,
				"sys_bytes":   m.Sys,
				"goroutines":  runtime.NumGoroutine(),
			},
		}

		if m.Sys > 0 && float64(m.Alloc)/float64(m.Sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}
