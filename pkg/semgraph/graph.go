package semgraph

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/knakk/rdf"
)

// ErrMalformed is wrapped by Decode errors for input that is not valid N-Triples.
var ErrMalformed = errors.New("malformed N-Triples")

type entry struct {
	key    string
	triple rdf.Triple
}

// Graph is an immutable set of triples kept in canonical order: sorted by
// their N-Triples serialization, without duplicates. Two graphs holding the
// same statements are Equal and encode to identical bytes.
type Graph struct {
	entries []entry
}

// NewGraph builds a graph from triples, dropping duplicates.
func NewGraph(triples ...rdf.Triple) *Graph {
	entries := make([]entry, 0, len(triples))
	for _, t := range triples {
		entries = append(entries, entry{key: t.Serialize(rdf.NTriples), triple: t})
	}
	slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.key, b.key) })
	entries = slices.CompactFunc(entries, func(a, b entry) bool { return a.key == b.key })
	return &Graph{entries: entries}
}

// Len returns the number of triples.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Triples returns the triples in canonical order.
func (g *Graph) Triples() []rdf.Triple {
	out := make([]rdf.Triple, g.Len())
	for i := range out {
		out[i] = g.entries[i].triple
	}
	return out
}

// Equal reports whether both graphs hold the same statements.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for i := 0; i < g.Len(); i++ {
		if g.entries[i].key != other.entries[i].key {
			return false
		}
	}
	return true
}

// Encode writes the graph as N-Triples.
func (g *Graph) Encode(w io.Writer) error {
	enc := rdf.NewTripleEncoder(w, rdf.NTriples)
	for _, e := range g.entriesOrEmpty() {
		if err := enc.Encode(e.triple); err != nil {
			return fmt.Errorf("encode triple: %w", err)
		}
	}
	return enc.Close()
}

// Bytes returns the N-Triples encoding of the graph.
func (g *Graph) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := g.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Graph) entriesOrEmpty() []entry {
	if g == nil {
		return nil
	}
	return g.entries
}

// Decode reads N-Triples from r. Errors wrap ErrMalformed.
func Decode(r io.Reader) (*Graph, error) {
	dec := rdf.NewTripleDecoder(r, rdf.NTriples)
	var triples []rdf.Triple
	for {
		t, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: statement %d: %v", ErrMalformed, len(triples)+1, err)
		}
		triples = append(triples, t)
	}
	return NewGraph(triples...), nil
}

// DecodeBytes is Decode for in-memory content.
func DecodeBytes(raw []byte) (*Graph, error) {
	return Decode(bytes.NewReader(raw))
}
