// Package semgraph holds the semantic-graph (RDF) mirror of a topology: a
// canonical, sorted triple set with an N-Triples codec, and the vocabulary
// used to describe networks, hosts and links.
package semgraph

import (
	"net/url"
	"strings"

	"github.com/knakk/rdf"
)

const (
	// Namespace of the topology vocabulary.
	Namespace = "https://cluso.dev/ns/topology#"

	// TopologyBase prefixes every topology and element IRI.
	TopologyBase = "https://cluso.dev/topology/"

	rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	// anonymousTopology stands in for an empty topology id in IRIs.
	anonymousTopology = "_"
)

// Vocabulary terms
var (
	RDFType = mustIRI(rdfType)

	ClassTopology = term("Topology")
	ClassNetwork  = term("Network")
	ClassHost     = term("Host")
	ClassLink     = term("Link")

	PropHasElement   = term("hasElement")
	PropAddress      = term("address")
	PropPrefixLength = term("prefixLength")
	PropIPVersion    = term("ipVersion")
	PropName         = term("name")
	PropInNetwork    = term("inNetwork")
	PropSource       = term("source")
	PropTarget       = term("target")
)

func term(local string) rdf.IRI {
	return mustIRI(Namespace + local)
}

func mustIRI(s string) rdf.IRI {
	iri, err := rdf.NewIRI(s)
	if err != nil {
		panic("semgraph: bad vocabulary IRI " + s + ": " + err.Error())
	}
	return iri
}

// InVocabulary reports whether iri belongs to the topology namespace.
func InVocabulary(iri string) bool {
	return strings.HasPrefix(iri, Namespace)
}

func topologySegment(topologyID string) string {
	if topologyID == "" {
		return anonymousTopology
	}
	return url.PathEscape(topologyID)
}

// TopologyIRI returns the subject describing the topology itself.
func TopologyIRI(topologyID string) (rdf.IRI, error) {
	return rdf.NewIRI(TopologyBase + topologySegment(topologyID))
}

// ElementIRI returns the subject of an element within a topology.
func ElementIRI(topologyID, elementID string) (rdf.IRI, error) {
	return rdf.NewIRI(TopologyBase + topologySegment(topologyID) + "/" + url.PathEscape(elementID))
}

// ElementIDFromIRI extracts the element id, the last path segment, from an
// element IRI. ok is false for IRIs outside TopologyBase or without an
// element segment.
func ElementIDFromIRI(iri string) (id string, ok bool) {
	rest, found := strings.CutPrefix(iri, TopologyBase)
	if !found {
		return "", false
	}
	i := strings.LastIndexByte(rest, '/')
	if i <= 0 || i == len(rest)-1 {
		return "", false
	}
	id, err := url.PathUnescape(rest[i+1:])
	if err != nil {
		return "", false
	}
	return id, true
}
