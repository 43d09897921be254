package topology

import (
	"fmt"
	"maps"
)

// Mode selects how Apply combines incoming content with the store.
type Mode int

const (
	// Replace discards all current elements first.
	Replace Mode = iota
	// Merge adds and updates elements; incoming identifiers win.
	Merge
)

func (m Mode) String() string {
	switch m {
	case Replace:
		return "replace"
	case Merge:
		return "merge"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Apply installs content into the store. The candidate result is built and
// checked in full before it replaces the current elements, so on error the
// store is exactly as it was. Errors are *SemanticError.
//
// In Replace mode the topology id becomes topologyID. In Merge mode the
// store keeps its current id.
func (s *Store) Apply(content Content, mode Mode, topologyID string) error {
	const op = "apply"

	incoming := make(map[string]Element, content.Len())
	for _, e := range content.Elements() {
		id := e.ElementID()
		if prev, dup := incoming[id]; dup {
			return NewSemanticError(op, e.Kind(), id,
				fmt.Errorf("%w: also used by a %s", ErrDuplicateID, prev.Kind()))
		}
		incoming[id] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := make(map[string]Element, len(s.elements)+len(incoming))
	if mode == Merge {
		maps.Copy(candidate, s.elements)
	}
	for id, e := range incoming {
		if prev, ok := candidate[id]; ok && prev.Kind() != e.Kind() {
			return NewSemanticError(op, e.Kind(), id,
				fmt.Errorf("%w: existing %s has the same identifier", ErrDuplicateID, prev.Kind()))
		}
		candidate[id] = e
	}

	checked, err := checkIndex(op, candidate)
	if err != nil {
		return err
	}

	s.elements = checked
	for id := range incoming {
		s.ids.Observe(id)
	}
	if mode == Replace {
		s.topologyID = topologyID
	}

	ids := make([]string, 0, len(incoming))
	for id := range incoming {
		ids = append(ids, id)
	}
	sortIDs(ids)
	s.commit(EventLoaded, ids...)
	return nil
}
