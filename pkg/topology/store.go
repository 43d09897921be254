// Package topology holds the authoritative in-memory model of networks,
// hosts and links being edited.
//
// All mutations and snapshots run under a single RWMutex, so a snapshot is
// always taken between two fully applied mutations.
package topology

import (
	"slices"
	"sync"

	"github.com/dd0wney/cluso-topology/pkg/ident"
)

// EventType names a kind of store change.
type EventType string

const (
	EventCreated    EventType = "created"
	EventRemoved    EventType = "removed"
	EventLoaded     EventType = "loaded"
	EventCleared    EventType = "cleared"
	EventIdentified EventType = "identified"
)

// Event describes an applied mutation.
type Event struct {
	Type       EventType `json:"type"`
	TopologyID string    `json:"topologyId"`
	Revision   uint64    `json:"revision"`
	ElementIDs []string  `json:"elementIds,omitempty"`
}

// Observer is called inside the store's critical section after a mutation
// has been applied. Observers must not call back into the store.
type Observer func(Event)

// Option configures a Store.
type Option func(*Store)

// WithObserver registers an observer for store events.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observers = append(s.observers, o)
	}
}

// WithRegistry sets the identifier registry. Stores sharing a registry
// never issue the same identifier.
func WithRegistry(r *ident.Registry) Option {
	return func(s *Store) {
		s.ids = r
	}
}

// Store is the in-memory topology. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	elements   map[string]Element
	topologyID string
	revision   uint64

	ids       *ident.Registry
	observers []Observer
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		elements: make(map[string]Element),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = ident.NewRegistry()
	}
	return s
}

// allocate must be called with the write lock held.
func (s *Store) allocate(prefix string) string {
	for {
		id := s.ids.Allocate(prefix)
		if _, taken := s.elements[id]; !taken {
			return id
		}
	}
}

// commit must be called with the write lock held.
func (s *Store) commit(typ EventType, ids ...string) {
	s.revision++
	ev := Event{
		Type:       typ,
		TopologyID: s.topologyID,
		Revision:   s.revision,
		ElementIDs: ids,
	}
	for _, o := range s.observers {
		o(ev)
	}
}

// CreateNetwork validates the input and inserts a new network. The only
// error it returns is *ValidationError, in which case the store is unchanged.
func (s *Store) CreateNetwork(address string, prefixLength int, version Version) (Network, error) {
	n, p := normalizeNetwork(address, prefixLength, version)
	if p != nil {
		return Network{}, newValidationError("create", KindNetwork, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = s.allocate(ident.PrefixNetwork)
	s.elements[n.ID] = n
	s.commit(EventCreated, n.ID)
	return n, nil
}

// CreateHost inserts a host into an existing network.
func (s *Store) CreateHost(name, networkID, address string) (Host, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elements[networkID]; !ok {
		return Host{}, newNotFoundError("create host", networkID)
	}
	h, p := checkHost(Host{Name: name, NetworkID: networkID, Address: address}, s.elements)
	if p != nil {
		return Host{}, newValidationError("create", KindHost, p)
	}

	h.ID = s.allocate(ident.PrefixHost)
	s.elements[h.ID] = h
	s.commit(EventCreated, h.ID)
	return h, nil
}

// CreateLink connects two existing hosts.
func (s *Store) CreateLink(source, target string) (Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []string{source, target} {
		if _, ok := s.elements[id]; !ok {
			return Link{}, newNotFoundError("create link", id)
		}
	}
	l := Link{Source: source, Target: target}
	if p := checkLink(l, s.elements); p != nil {
		return Link{}, newValidationError("create", KindLink, p)
	}

	l.ID = s.allocate(ident.PrefixLink)
	s.elements[l.ID] = l
	s.commit(EventCreated, l.ID)
	return l, nil
}

// RemoveElement removes id and every element that depends on it: a
// network takes its hosts with it, a host takes its links. It returns the
// removed identifiers, id first.
func (s *Store) RemoveElement(id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, ok := s.elements[id]
	if !ok {
		return nil, newNotFoundError("remove", id)
	}

	gone := map[string]bool{id: true}
	var hosts, links []string
	if root.Kind() == KindNetwork {
		for eid, e := range s.elements {
			if h, ok := e.(Host); ok && h.NetworkID == id {
				gone[eid] = true
				hosts = append(hosts, eid)
			}
		}
	}
	for eid, e := range s.elements {
		if l, ok := e.(Link); ok && !gone[eid] && (gone[l.Source] || gone[l.Target]) {
			links = append(links, eid)
		}
	}
	sortIDs(hosts)
	sortIDs(links)

	removed := append(append([]string{id}, hosts...), links...)
	for _, rid := range removed {
		delete(s.elements, rid)
		s.ids.Release(rid)
	}
	s.commit(EventRemoved, removed...)
	return removed, nil
}

// Get returns the element with the given id.
func (s *Store) Get(id string) (Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elements[id]
	return e, ok
}

// Len returns the number of elements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elements)
}

// Revision returns the number of mutations applied so far.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// TopologyID returns the persistence key of the current content.
func (s *Store) TopologyID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topologyID
}

// SetTopologyID sets the persistence key of the current content.
func (s *Store) SetTopologyID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topologyID = id
	s.commit(EventIdentified)
}

// Snapshot returns a deep copy of the store. Element slices are sorted by
// identifier and never nil.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		TopologyID: s.topologyID,
		Revision:   s.revision,
		Content: Content{
			Networks: []Network{},
			Hosts:    []Host{},
			Links:    []Link{},
		},
	}
	for _, e := range s.elements {
		switch v := e.(type) {
		case Network:
			snap.Networks = append(snap.Networks, v)
		case Host:
			snap.Hosts = append(snap.Hosts, v)
		case Link:
			snap.Links = append(snap.Links, v)
		}
	}
	slices.SortFunc(snap.Networks, func(a, b Network) int { return ident.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.Hosts, func(a, b Host) int { return ident.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.Links, func(a, b Link) int { return ident.Compare(a.ID, b.ID) })
	return snap
}

// Clear removes every element and resets the topology id.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elements = make(map[string]Element)
	s.topologyID = ""
	s.commit(EventCleared)
}

// Reset empties the store and sets its topology id in one mutation.
func (s *Store) Reset(topologyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elements = make(map[string]Element)
	s.topologyID = topologyID
	s.commit(EventCleared)
}

func sortIDs(ids []string) {
	slices.SortFunc(ids, ident.Compare)
}
