// Package ident issues identifiers for topology elements.
//
// Identifiers have the form "<prefix>-<n>" where n grows monotonically per
// prefix. Identifiers are never reused within a process lifetime, so a
// stale reference to a removed element can never alias a new one.
package ident

import (
	"cmp"
	"strconv"
	"strings"
	"sync"
)

// Element type prefixes.
const (
	PrefixNetwork = "net"
	PrefixHost    = "host"
	PrefixLink    = "link"
)

// Registry allocates identifiers. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	counters map[string]uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]uint64)}
}

// Allocate returns the next identifier for prefix. It cannot fail.
func (r *Registry) Allocate(prefix string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[prefix]++
	return Format(prefix, r.counters[prefix])
}

// Release is a hook for removed elements. Identifiers are not reused.
func (r *Registry) Release(id string) {}

// Observe advances the counter of id's prefix past id's sequence number,
// so identifiers that entered the store from elsewhere are never issued.
// Identifiers not shaped like "<prefix>-<n>" are ignored.
func (r *Registry) Observe(id string) {
	prefix, n, ok := Parse(id)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if n > r.counters[prefix] {
		r.counters[prefix] = n
	}
}

// Peek returns the last sequence number issued or observed for prefix.
func (r *Registry) Peek(prefix string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[prefix]
}

// Format builds an identifier from prefix and sequence number.
func Format(prefix string, n uint64) string {
	return prefix + "-" + strconv.FormatUint(n, 10)
}

// Parse splits an identifier into prefix and sequence number.
func Parse(id string) (prefix string, n uint64, ok bool) {
	i := strings.LastIndexByte(id, '-')
	if i <= 0 || i == len(id)-1 {
		return "", 0, false
	}
	n, err := strconv.ParseUint(id[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return id[:i], n, true
}

// Valid reports whether id is usable as an element identifier: non-empty and
// limited to letters, digits, '.', '_' and '-'.
func Valid(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}

// Compare orders identifiers by the part before the last '-', then by
// the part after it: numeric sequence numbers first and in numeric order,
// anything else after them in string order. "net-2" sorts before "net-10"
// and both sort before "net-5x". The order is total, so foreign
// identifiers sort the same way regardless of input order.
func Compare(a, b string) int {
	pa, sa := split(a)
	pb, sb := split(b)
	if c := strings.Compare(pa, pb); c != 0 {
		return c
	}

	na, errA := strconv.ParseUint(sa, 10, 64)
	nb, errB := strconv.ParseUint(sb, 10, 64)
	switch {
	case errA == nil && errB == nil:
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// split cuts id at its last '-'. An id without one is all prefix.
func split(id string) (prefix, suffix string) {
	i := strings.LastIndexByte(id, '-')
	if i <= 0 {
		return id, ""
	}
	return id[:i], id[i+1:]
}
