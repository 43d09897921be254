// Package engine answers client operations against the topology store, the
// semantic graph and the IO-Tool gateway.
//
// Every operation returns a Result carrying one of the Status values. Store
// mutations run through a recovery ladder: a failure that is neither a
// validation nor a not-found error triggers a resync of the semantic graph,
// and if that fails too, a full clear.
package engine

import (
	"github.com/google/uuid"

	"github.com/dd0wney/cluso-topology/pkg/graphsync"
	"github.com/dd0wney/cluso-topology/pkg/iotool"
	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/metrics"
	"github.com/dd0wney/cluso-topology/pkg/topology"
)

// Status is the outcome reported to clients.
type Status string

const (
	StatusSuccess          Status = "SUCCESS"
	StatusGeneralError     Status = "GENERAL_ERROR"
	StatusBusy             Status = "BUSY"
	StatusMissingArguments Status = "MISSING_ARGUMENTS"
	StatusRecovered        Status = "EXCEPTION_RECOVERED"
	StatusUnresolved       Status = "EXCEPTION_UNRESOLVED"
	// StatusException reports a failure in an operation that does not
	// attempt recovery.
	StatusException Status = "EXCEPTION"
)

// RecoveryOutcome tells whether a failed mutation was recovered.
type RecoveryOutcome int

const (
	RecoveryNone RecoveryOutcome = iota
	Recovered
	Unresolved
)

func (r RecoveryOutcome) String() string {
	switch r {
	case Recovered:
		return "recovered"
	case Unresolved:
		return "unresolved"
	default:
		return "none"
	}
}

// MalformedNetworkMessage is reported when createNetwork input is rejected.
const MalformedNetworkMessage = "Malformed address or subnet mask detected"

// Result is the reply to one operation.
type Result struct {
	Status        Status             `json:"status"`
	Topology      *topology.Snapshot `json:"topology,omitempty"`
	Message       string             `json:"message,omitempty"`
	ErrorType     string             `json:"type,omitempty"`
	Recovery      RecoveryOutcome    `json:"-"`
	ElementID     string             `json:"elementId,omitempty"`
	Removed       []string           `json:"removed,omitempty"`
	ReturnCode    *int               `json:"returnCode,omitempty"`
	ReturnMessage string             `json:"returnMessage,omitempty"`
	IOTool        *iotool.Session    `json:"iotool,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records mutation and recovery outcomes.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithIDGenerator replaces the topology id generator used by NewTopology.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// Engine is safe for concurrent use.
type Engine struct {
	sync    *graphsync.Synchronizer
	store   *topology.Store
	gateway *iotool.Gateway
	logger  logging.Logger
	metrics *metrics.Registry
	newID   func() string
}

// New creates an Engine over a synchronizer and a gateway.
func New(sync *graphsync.Synchronizer, gateway *iotool.Gateway, opts ...Option) *Engine {
	e := &Engine{
		sync:    sync,
		store:   sync.Store(),
		gateway: gateway,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrDefault(e.logger).With(logging.Component("engine"))
	return e
}

// Synchronizer returns the graph synchronizer.
func (e *Engine) Synchronizer() *graphsync.Synchronizer { return e.sync }

// Gateway returns the IO-Tool gateway.
func (e *Engine) Gateway() *iotool.Gateway { return e.gateway }

func (e *Engine) snapshot() *topology.Snapshot {
	snap := e.store.Snapshot()
	return &snap
}

func (e *Engine) updateSize() {
	if e.metrics == nil {
		return
	}
	snap := e.store.Snapshot()
	e.metrics.UpdateTopologySize(len(snap.Networks), len(snap.Hosts), len(snap.Links), snap.Revision)
}

func missingArguments(err error) Result {
	return Result{Status: StatusMissingArguments, Message: err.Error()}
}
