package topology

import (
	"fmt"
	"strings"
)

// Kind identifies the variant of a topology element.
type Kind string

const (
	KindNetwork Kind = "network"
	KindHost    Kind = "host"
	KindLink    Kind = "link"
)

// Version is the IP address family of a network.
type Version string

const (
	V4 Version = "v4"
	V6 Version = "v6"
)

// Bits returns the address width of the version, or 0 if unknown.
func (v Version) Bits() int {
	switch v {
	case V4:
		return 32
	case V6:
		return 128
	default:
		return 0
	}
}

// ParseVersion accepts "4", "6", "v4", "v6", "ipv4" and "ipv6" in any case.
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "4", "v4", "ipv4":
		return V4, nil
	case "6", "v6", "ipv6":
		return V6, nil
	default:
		return "", fmt.Errorf("unknown IP version %q", s)
	}
}

// Record is the structured, serializable form of an element.
type Record map[string]any

// Element is anything that can live in a Store.
type Element interface {
	ElementID() string
	Kind() Kind
	Record() Record
}

// Network is an IP address range.
type Network struct {
	ID           string  `json:"id"`
	Address      string  `json:"address"`
	PrefixLength int     `json:"prefixLength"`
	Version      Version `json:"version"`
}

func (n Network) ElementID() string { return n.ID }
func (n Network) Kind() Kind        { return KindNetwork }

func (n Network) Record() Record {
	return Record{
		"id":           n.ID,
		"kind":         string(KindNetwork),
		"address":      n.Address,
		"prefixLength": n.PrefixLength,
		"version":      string(n.Version),
	}
}

// CIDR returns the network in address/prefix notation.
func (n Network) CIDR() string {
	return fmt.Sprintf("%s/%d", n.Address, n.PrefixLength)
}

// Host is a machine attached to a network. Address is optional.
type Host struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	NetworkID string `json:"network"`
	Address   string `json:"address,omitempty"`
}

func (h Host) ElementID() string { return h.ID }
func (h Host) Kind() Kind        { return KindHost }

func (h Host) Record() Record {
	r := Record{
		"id":      h.ID,
		"kind":    string(KindHost),
		"name":    h.Name,
		"network": h.NetworkID,
	}
	if h.Address != "" {
		r["address"] = h.Address
	}
	return r
}

// Link connects two distinct hosts.
type Link struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

func (l Link) ElementID() string { return l.ID }
func (l Link) Kind() Kind        { return KindLink }

func (l Link) Record() Record {
	return Record{
		"id":     l.ID,
		"kind":   string(KindLink),
		"source": l.Source,
		"target": l.Target,
	}
}

// Content is a set of elements without store metadata. It is the unit of
// exchange between the store and the graph synchronizer.
type Content struct {
	Networks []Network `json:"networks"`
	Hosts    []Host    `json:"hosts"`
	Links    []Link    `json:"links"`
}

// Len returns the number of elements.
func (c Content) Len() int {
	return len(c.Networks) + len(c.Hosts) + len(c.Links)
}

// Elements returns every element, networks first, then hosts, then links.
func (c Content) Elements() []Element {
	out := make([]Element, 0, c.Len())
	for _, n := range c.Networks {
		out = append(out, n)
	}
	for _, h := range c.Hosts {
		out = append(out, h)
	}
	for _, l := range c.Links {
		out = append(out, l)
	}
	return out
}

// Snapshot is a point-in-time copy of a Store.
type Snapshot struct {
	TopologyID string `json:"topologyId"`
	Revision   uint64 `json:"revision"`
	Content
}

// Records returns the structured form of every element.
func (s Snapshot) Records() []Record {
	elems := s.Elements()
	out := make([]Record, len(elems))
	for i, e := range elems {
		out[i] = e.Record()
	}
	return out
}
