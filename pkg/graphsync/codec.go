package graphsync

import (
	"fmt"
	"strconv"

	"github.com/knakk/rdf"

	"github.com/dd0wney/cluso-topology/pkg/ident"
	"github.com/dd0wney/cluso-topology/pkg/semgraph"
	"github.com/dd0wney/cluso-topology/pkg/topology"
)

// Codec converts between store snapshots and semantic graphs.
type Codec interface {
	Encode(snap topology.Snapshot) (*semgraph.Graph, error)
	Decode(g *semgraph.Graph) (topology.Content, error)
}

// DefaultCodec maps the topology onto the semgraph vocabulary. Each element
// becomes a subject typed by its class; the topology subject links to every
// element through hasElement.
type DefaultCodec struct{}

type tripleWriter struct {
	topologyID string
	triples    []rdf.Triple
	err        error
}

func (w *tripleWriter) subject(id string) rdf.IRI {
	iri, err := semgraph.ElementIRI(w.topologyID, id)
	if err != nil && w.err == nil {
		w.err = fmt.Errorf("element %s: %w", id, err)
	}
	return iri
}

func (w *tripleWriter) add(s rdf.Subject, p rdf.Predicate, o rdf.Object) {
	w.triples = append(w.triples, rdf.Triple{Subj: s, Pred: p, Obj: o})
}

func (w *tripleWriter) literal(s rdf.Subject, p rdf.Predicate, v any) {
	lit, err := rdf.NewLiteral(v)
	if err != nil {
		if w.err == nil {
			w.err = err
		}
		return
	}
	w.add(s, p, lit)
}

// Encode is a pure function of the snapshot content: equal content yields
// an equal graph regardless of mutation history. The revision is ignored.
func (DefaultCodec) Encode(snap topology.Snapshot) (*semgraph.Graph, error) {
	w := &tripleWriter{topologyID: snap.TopologyID}

	topo, err := semgraph.TopologyIRI(snap.TopologyID)
	if err != nil {
		return nil, fmt.Errorf("topology %q: %w", snap.TopologyID, err)
	}
	w.add(topo, semgraph.RDFType, semgraph.ClassTopology)

	for _, n := range snap.Networks {
		s := w.subject(n.ID)
		w.add(topo, semgraph.PropHasElement, s)
		w.add(s, semgraph.RDFType, semgraph.ClassNetwork)
		w.literal(s, semgraph.PropAddress, n.Address)
		w.literal(s, semgraph.PropPrefixLength, n.PrefixLength)
		w.literal(s, semgraph.PropIPVersion, string(n.Version))
	}
	for _, h := range snap.Hosts {
		s := w.subject(h.ID)
		w.add(topo, semgraph.PropHasElement, s)
		w.add(s, semgraph.RDFType, semgraph.ClassHost)
		w.literal(s, semgraph.PropName, h.Name)
		w.add(s, semgraph.PropInNetwork, w.subject(h.NetworkID))
		if h.Address != "" {
			w.literal(s, semgraph.PropAddress, h.Address)
		}
	}
	for _, l := range snap.Links {
		s := w.subject(l.ID)
		w.add(topo, semgraph.PropHasElement, s)
		w.add(s, semgraph.RDFType, semgraph.ClassLink)
		w.add(s, semgraph.PropSource, w.subject(l.Source))
		w.add(s, semgraph.PropTarget, w.subject(l.Target))
	}

	if w.err != nil {
		return nil, w.err
	}
	return semgraph.NewGraph(w.triples...), nil
}

// description gathers the statements made about one subject.
type description struct {
	iri   string
	id    string
	types []string
	props map[string][]rdf.Object
}

func (d *description) kind() (topology.Kind, error) {
	switch len(d.types) {
	case 0:
		return "", fmt.Errorf("missing rdf:type")
	case 1:
	default:
		return "", fmt.Errorf("%w: %d classes", errMultiValued, len(d.types))
	}
	switch d.types[0] {
	case semgraph.ClassNetwork.String():
		return topology.KindNetwork, nil
	case semgraph.ClassHost.String():
		return topology.KindHost, nil
	case semgraph.ClassLink.String():
		return topology.KindLink, nil
	default:
		return "", fmt.Errorf("unknown class <%s>", d.types[0])
	}
}

// one returns the single value of prop. required reports whether absence
// is an error.
func (d *description) one(prop rdf.IRI, required bool) (rdf.Object, error) {
	vals := d.props[prop.String()]
	switch len(vals) {
	case 0:
		if required {
			return nil, fmt.Errorf("missing <%s>", prop.String())
		}
		return nil, nil
	case 1:
		return vals[0], nil
	default:
		return nil, fmt.Errorf("%w: <%s> has %d values", errMultiValued, prop.String(), len(vals))
	}
}

func (d *description) text(prop rdf.IRI, required bool) (string, error) {
	obj, err := d.one(prop, required)
	if err != nil || obj == nil {
		return "", err
	}
	if obj.Type() != rdf.TermLiteral {
		return "", fmt.Errorf("<%s> must be a literal", prop.String())
	}
	return obj.String(), nil
}

func (d *description) ref(prop rdf.IRI) (string, error) {
	obj, err := d.one(prop, true)
	if err != nil {
		return "", err
	}
	if obj.Type() != rdf.TermIRI {
		return "", fmt.Errorf("<%s> must reference an element", prop.String())
	}
	id, ok := semgraph.ElementIDFromIRI(obj.String())
	if !ok {
		return "", fmt.Errorf("<%s> references foreign IRI <%s>", prop.String(), obj.String())
	}
	return id, nil
}

// Decode rebuilds topology content from g. Errors are
// *topology.SemanticError. Statements with predicates outside the topology
// vocabulary are ignored; referential integrity is left to Store.Apply.
func (DefaultCodec) Decode(g *semgraph.Graph) (topology.Content, error) {
	const op = "decode"

	subjects := make(map[string]*description)
	var order []string
	for _, t := range g.Triples() {
		if t.Subj.Type() != rdf.TermIRI {
			return topology.Content{}, topology.NewSemanticError(op, "", t.Subj.String(),
				fmt.Errorf("subject must be an IRI"))
		}
		pred := t.Pred.String()
		if pred != semgraph.RDFType.String() && !semgraph.InVocabulary(pred) {
			continue
		}
		key := t.Subj.String()
		d, ok := subjects[key]
		if !ok {
			d = &description{iri: key, props: make(map[string][]rdf.Object)}
			subjects[key] = d
			order = append(order, key)
		}
		if pred == semgraph.RDFType.String() {
			if t.Obj.Type() != rdf.TermIRI {
				return topology.Content{}, topology.NewSemanticError(op, "", key, fmt.Errorf("rdf:type must be an IRI"))
			}
			d.types = append(d.types, t.Obj.String())
			continue
		}
		d.props[pred] = append(d.props[pred], t.Obj)
	}

	var content topology.Content
	seen := make(map[string]string)
	for _, key := range order {
		d := subjects[key]
		if len(d.types) == 1 && d.types[0] == semgraph.ClassTopology.String() {
			continue
		}

		id, ok := semgraph.ElementIDFromIRI(d.iri)
		if !ok || !ident.Valid(id) {
			return topology.Content{}, topology.NewSemanticError(op, "", d.iri, fmt.Errorf("not an element IRI"))
		}
		if prev, dup := seen[id]; dup {
			return topology.Content{}, topology.NewSemanticError(op, "", id,
				fmt.Errorf("%w: <%s> and <%s>", topology.ErrDuplicateID, prev, d.iri))
		}
		seen[id] = d.iri
		d.id = id

		kind, err := d.kind()
		if err != nil {
			return topology.Content{}, topology.NewSemanticError(op, "", id, err)
		}
		if err := decodeElement(d, kind, &content); err != nil {
			return topology.Content{}, topology.NewSemanticError(op, kind, id, err)
		}
	}
	return content, nil
}

func decodeElement(d *description, kind topology.Kind, content *topology.Content) error {
	switch kind {
	case topology.KindNetwork:
		address, err := d.text(semgraph.PropAddress, true)
		if err != nil {
			return err
		}
		rawPrefix, err := d.text(semgraph.PropPrefixLength, true)
		if err != nil {
			return err
		}
		prefix, err := strconv.Atoi(rawPrefix)
		if err != nil {
			return fmt.Errorf("prefixLength %q is not an integer", rawPrefix)
		}
		rawVersion, err := d.text(semgraph.PropIPVersion, true)
		if err != nil {
			return err
		}
		version, err := topology.ParseVersion(rawVersion)
		if err != nil {
			return err
		}
		content.Networks = append(content.Networks, topology.Network{
			ID: d.id, Address: address, PrefixLength: prefix, Version: version,
		})

	case topology.KindHost:
		name, err := d.text(semgraph.PropName, true)
		if err != nil {
			return err
		}
		network, err := d.ref(semgraph.PropInNetwork)
		if err != nil {
			return err
		}
		address, err := d.text(semgraph.PropAddress, false)
		if err != nil {
			return err
		}
		content.Hosts = append(content.Hosts, topology.Host{
			ID: d.id, Name: name, NetworkID: network, Address: address,
		})

	case topology.KindLink:
		source, err := d.ref(semgraph.PropSource)
		if err != nil {
			return err
		}
		target, err := d.ref(semgraph.PropTarget)
		if err != nil {
			return err
		}
		content.Links = append(content.Links, topology.Link{ID: d.id, Source: source, Target: target})
	}
	return nil
}
