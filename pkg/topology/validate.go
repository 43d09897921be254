package topology

import (
	"net/netip"
	"strings"
	"unicode/utf8"

	"github.com/dd0wney/cluso-topology/pkg/ident"
)

// NormalizeNetwork checks address, prefix length and version against each
// other and returns the network with its address in canonical form. The ID
// is left empty.
func NormalizeNetwork(address string, prefixLength int, version Version) (Network, error) {
	n, p := normalizeNetwork(address, prefixLength, version)
	if p != nil {
		return Network{}, p
	}
	return n, nil
}

func normalizeNetwork(address string, prefixLength int, version Version) (Network, *problem) {
	bits := version.Bits()
	if bits == 0 {
		return Network{}, invalid("version", "unknown IP version %q", version)
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(address))
	if err != nil {
		return Network{}, invalid("address", "malformed address %q", address)
	}
	if addr.Zone() != "" {
		return Network{}, invalid("address", "zoned address %q not allowed", address)
	}
	if (version == V4) != addr.Is4() {
		return Network{}, invalid("address", "%q is not an %s address", address, version)
	}
	if prefixLength < 0 || prefixLength > bits {
		return Network{}, invalid("prefixLength", "%d out of range 0..%d", prefixLength, bits)
	}

	prefix := netip.PrefixFrom(addr, prefixLength)
	if prefix.Masked().Addr() != addr {
		return Network{}, invalid("address", "%s has host bits set for /%d", address, prefixLength)
	}

	return Network{
		Address:      addr.String(),
		PrefixLength: prefixLength,
		Version:      version,
	}, nil
}

// prefixOf assumes n was produced by normalizeNetwork.
func prefixOf(n Network) netip.Prefix {
	addr, _ := netip.ParseAddr(n.Address)
	return netip.PrefixFrom(addr, n.PrefixLength)
}

// checkHost validates h against the elements in index.
func checkHost(h Host, index map[string]Element) (Host, *problem) {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return Host{}, invalid("name", "must not be empty")
	}
	if !utf8.ValidString(h.Name) {
		return Host{}, invalid("name", "not valid UTF-8")
	}

	elem, ok := index[h.NetworkID]
	if !ok {
		return Host{}, invalid("network", "network %q does not exist", h.NetworkID)
	}
	network, ok := elem.(Network)
	if !ok {
		return Host{}, invalid("network", "%q is a %s, not a network", h.NetworkID, elem.Kind())
	}

	if h.Address == "" {
		return h, nil
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(h.Address))
	if err != nil || addr.Zone() != "" {
		return Host{}, invalid("address", "malformed address %q", h.Address)
	}
	if !prefixOf(network).Contains(addr) {
		return Host{}, invalid("address", "%s is outside %s", addr, network.CIDR())
	}
	h.Address = addr.String()
	return h, nil
}

// checkLink validates l against the elements in index.
func checkLink(l Link, index map[string]Element) *problem {
	if l.Source == l.Target {
		return invalid("target", "link endpoints must differ")
	}
	for _, end := range []struct{ field, id string }{{"source", l.Source}, {"target", l.Target}} {
		elem, ok := index[end.id]
		if !ok {
			return invalid(end.field, "host %q does not exist", end.id)
		}
		if elem.Kind() != KindHost {
			return invalid(end.field, "%q is a %s, not a host", end.id, elem.Kind())
		}
	}
	return nil
}

// checkIndex validates every element of a candidate index and returns it
// with networks and hosts normalized.
func checkIndex(op string, index map[string]Element) (map[string]Element, error) {
	out := make(map[string]Element, len(index))
	for id, elem := range index {
		if !ident.Valid(id) {
			return nil, NewSemanticError(op, elem.Kind(), id, invalid("id", "malformed identifier"))
		}
		if n, ok := elem.(Network); ok {
			norm, p := normalizeNetwork(n.Address, n.PrefixLength, n.Version)
			if p != nil {
				return nil, NewSemanticError(op, KindNetwork, id, p)
			}
			norm.ID = id
			out[id] = norm
		}
	}
	for id, elem := range index {
		switch e := elem.(type) {
		case Host:
			e.ID = id
			h, p := checkHost(e, out)
			if p != nil {
				return nil, NewSemanticError(op, KindHost, id, p)
			}
			out[id] = h
		case Link:
			e.ID = id
			out[id] = e
		}
	}
	for id, elem := range out {
		if l, ok := elem.(Link); ok {
			if p := checkLink(l, out); p != nil {
				return nil, NewSemanticError(op, KindLink, id, p)
			}
		}
	}
	return out, nil
}
