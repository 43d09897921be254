package semgraph

import (
	"sync"
	"time"
)

// Model is the process-lifetime holder of the current semantic graph. It is
// replaced wholesale by each sync, never edited in place.
type Model struct {
	mu       sync.RWMutex
	graph    *Graph
	revision uint64
	syncedAt time.Time
}

// NewModel creates a model holding an empty graph.
func NewModel() *Model {
	return &Model{graph: NewGraph()}
}

// Replace installs g as the current graph. revision is the store revision
// g was derived from.
func (m *Model) Replace(g *Graph, revision uint64) {
	if g == nil {
		g = NewGraph()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graph = g
	m.revision = revision
	m.syncedAt = time.Now()
}

// Current returns the current graph. It is never nil.
func (m *Model) Current() *Graph {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph
}

// Revision returns the store revision of the current graph.
func (m *Model) Revision() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.revision
}

// SyncedAt returns when the graph was last replaced.
func (m *Model) SyncedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.syncedAt
}

// Clear discards the current graph.
func (m *Model) Clear() {
	m.Replace(NewGraph(), 0)
}
