package semgraph

import (
	"errors"
	"strings"
	"testing"

	"github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func literal(t *testing.T, v any) rdf.Literal {
	t.Helper()
	l, err := rdf.NewLiteral(v)
	require.NoError(t, err)
	return l
}

func element(t *testing.T, id string) rdf.IRI {
	t.Helper()
	iri, err := ElementIRI("topo-1", id)
	require.NoError(t, err)
	return iri
}

func sampleTriples(t *testing.T) []rdf.Triple {
	net := element(t, "net-1")
	return []rdf.Triple{
		{Subj: net, Pred: PropPrefixLength, Obj: literal(t, 24)},
		{Subj: net, Pred: RDFType, Obj: ClassNetwork},
		{Subj: net, Pred: PropAddress, Obj: literal(t, "192.168.1.0")},
	}
}

func TestNewGraph_SortsAndDeduplicates(t *testing.T) {
	triples := sampleTriples(t)
	g := NewGraph(append(triples, triples[0], triples[2])...)

	assert.Equal(t, 3, g.Len())

	reversed := NewGraph(triples[2], triples[1], triples[0])
	assert.True(t, g.Equal(reversed), "order of construction must not matter")

	got := g.Triples()
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Serialize(rdf.NTriples), got[i].Serialize(rdf.NTriples))
	}
}

func TestGraph_EncodeDecode(t *testing.T) {
	g := NewGraph(sampleTriples(t)...)

	raw, err := g.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<https://cluso.dev/topology/topo-1/net-1>")

	back, err := DecodeBytes(raw)
	require.NoError(t, err)
	assert.True(t, g.Equal(back))

	again, err := back.Bytes()
	require.NoError(t, err)
	assert.Equal(t, raw, again, "encoding is canonical")
}

func TestDecode_Empty(t *testing.T) {
	g, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
}

func TestDecode_Malformed(t *testing.T) {
	inputs := []string{
		"this is not rdf",
		`<https://cluso.dev/a> <https://cluso.dev/b> .`,
	}

	for _, in := range inputs {
		_, err := Decode(strings.NewReader(in))
		if assert.Error(t, err, in) {
			assert.True(t, errors.Is(err, ErrMalformed), in)
		}
	}
}

func TestNilGraph(t *testing.T) {
	var g *Graph
	assert.Equal(t, 0, g.Len())
	assert.True(t, g.Equal(NewGraph()))

	raw, err := g.Bytes()
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestElementIRI(t *testing.T) {
	tests := []struct {
		topology string
		element  string
		want     string
	}{
		{"topo-1", "net-1", "https://cluso.dev/topology/topo-1/net-1"},
		{"", "host-2", "https://cluso.dev/topology/_/host-2"},
		{"office floor/2", "link-3", "https://cluso.dev/topology/office%20floor%2F2/link-3"},
	}

	for _, tt := range tests {
		iri, err := ElementIRI(tt.topology, tt.element)
		require.NoError(t, err)
		assert.Equal(t, tt.want, iri.String())

		id, ok := ElementIDFromIRI(iri.String())
		assert.True(t, ok)
		assert.Equal(t, tt.element, id)
	}
}

func TestElementIDFromIRI_Rejects(t *testing.T) {
	for _, iri := range []string{
		"https://example.org/topology/t/net-1",
		"https://cluso.dev/topology/topo-1",
		"https://cluso.dev/topology/topo-1/",
	} {
		_, ok := ElementIDFromIRI(iri)
		assert.False(t, ok, iri)
	}
}

func TestModel(t *testing.T) {
	m := NewModel()
	assert.Equal(t, 0, m.Current().Len())

	g := NewGraph(sampleTriples(t)...)
	m.Replace(g, 7)
	assert.Same(t, g, m.Current())
	assert.Equal(t, uint64(7), m.Revision())
	assert.False(t, m.SyncedAt().IsZero())

	m.Clear()
	assert.Equal(t, 0, m.Current().Len())
	assert.Equal(t, uint64(0), m.Revision())
}
