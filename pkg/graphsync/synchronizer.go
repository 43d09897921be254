// Package graphsync keeps the topology store and its semantic graph
// equivalent: forward sync derives the graph from the store, reverse load
// rebuilds the store from graph content.
package graphsync

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/metrics"
	"github.com/dd0wney/cluso-topology/pkg/semgraph"
	"github.com/dd0wney/cluso-topology/pkg/topology"
)

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithCodec replaces DefaultCodec.
func WithCodec(c Codec) Option {
	return func(s *Synchronizer) { s.codec = c }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

// WithMetrics records sync timings and reverse-load outcomes.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Synchronizer) { s.metrics = m }
}

// Synchronizer owns the transformation between a Store and a Model.
// Forward syncs and reverse loads are serialized, so an older graph never
// replaces a newer one.
type Synchronizer struct {
	store   *topology.Store
	model   *semgraph.Model
	codec   Codec
	logger  logging.Logger
	metrics *metrics.Registry

	mu sync.Mutex
}

// New creates a synchronizer for store and model.
func New(store *topology.Store, model *semgraph.Model, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store: store,
		model: model,
		codec: DefaultCodec{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("graphsync"))
	return s
}

// Store returns the synchronized store.
func (s *Synchronizer) Store() *topology.Store { return s.store }

// Model returns the synchronized model.
func (s *Synchronizer) Model() *semgraph.Model { return s.model }

// ForwardSync derives the graph from the store's current content and
// installs it in the model.
func (s *Synchronizer) ForwardSync() (*semgraph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forwardLocked()
}

func (s *Synchronizer) forwardLocked() (*semgraph.Graph, error) {
	start := time.Now()
	snap := s.store.Snapshot()

	g, err := s.codec.Encode(snap)
	if s.metrics != nil {
		s.metrics.RecordForwardSync(g.Len(), time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("forward sync failed", logging.Revision(snap.Revision), logging.Error(err))
		return nil, &SyncError{Revision: snap.Revision, Cause: err}
	}

	s.model.Replace(g, snap.Revision)
	s.logger.Debug("forward sync",
		logging.TopologyID(snap.TopologyID),
		logging.Revision(snap.Revision),
		logging.Count(g.Len()),
		logging.Latency(time.Since(start)),
	)
	return g, nil
}

// ReverseLoad parses raw N-Triples and applies the result to the store.
// It fails with *ParseError for malformed content and
// *topology.SemanticError for content that violates topology invariants;
// in both cases the store is unchanged. On success the model is
// re-derived from the store; if that fails the error is *AppliedError and
// the store already holds the loaded content.
func (s *Synchronizer) ReverseLoad(raw []byte, mode topology.Mode, topologyID string) error {
	err := s.reverseLoad(raw, mode, topologyID)
	if s.metrics != nil {
		status := "success"
		switch {
		case err == nil:
		case IsParseError(err):
			status = "parse_error"
		case topology.IsSemantic(err):
			status = "semantic_error"
		case IsApplied(err):
			status = "sync_error"
		default:
			status = "error"
		}
		s.metrics.RecordReverseLoad(mode.String(), status)
	}
	return err
}

func (s *Synchronizer) reverseLoad(raw []byte, mode topology.Mode, topologyID string) error {
	g, err := semgraph.DecodeBytes(raw)
	if err != nil {
		return &ParseError{TopologyID: topologyID, Cause: err}
	}
	content, err := s.codec.Decode(g)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Apply(content, mode, topologyID); err != nil {
		return err
	}
	s.logger.Info("topology loaded",
		logging.TopologyID(topologyID),
		logging.String("mode", mode.String()),
		logging.Count(content.Len()),
	)
	if _, err := s.forwardLocked(); err != nil {
		return &AppliedError{TopologyID: topologyID, Cause: err}
	}
	return nil
}

// Resync re-derives the graph from whatever the store currently holds.
// A panic during the sync is returned as a *SyncError.
func (s *Synchronizer) Resync() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = &SyncError{Revision: s.store.Revision(), Panic: r}
			s.logger.Error("resync panicked", logging.Error(err))
		}
	}()

	_, err = s.forwardLocked()
	return err
}

// ClearAll empties both the store and the model. It discards user data.
func (s *Synchronizer) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Clear()
	s.model.Clear()
	s.logger.Warn("topology and semantic graph cleared")
}

// Export forward-syncs and returns the graph as N-Triples.
func (s *Synchronizer) Export() ([]byte, error) {
	g, err := s.ForwardSync()
	if err != nil {
		return nil, err
	}
	return g.Bytes()
}

// InSync reports whether the model reflects the store's latest revision.
func (s *Synchronizer) InSync() bool {
	return s.model.Revision() == s.store.Revision()
}
