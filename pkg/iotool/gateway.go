package iotool

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/metrics"
)

// State is the gateway session state.
type State int32

const (
	StateIdle State = iota
	StateBusy
)

func (s State) String() string {
	if s == StateBusy {
		return "BUSY"
	}
	return "IDLE"
}

// Status is the outcome of a gateway operation.
type Status string

const (
	StatusSuccess      Status = "SUCCESS"
	StatusGeneralError Status = "GENERAL_ERROR"
	StatusBusy         Status = "BUSY"
)

// Result describes one gateway call. For StatusBusy only Operation and
// Status are set.
type Result struct {
	Operation Operation
	Status    Status
	Code      int
	Message   string
	Data      map[string]string
}

// Session is a consistent view of the gateway state.
type Session struct {
	State         State     `json:"-"`
	StateName     string    `json:"state"`
	LastOperation Operation `json:"lastOperation,omitempty"`
	ReturnCode    int       `json:"returnCode"`
	ReturnMessage string    `json:"returnMessage"`
	PayloadIDs    []string  `json:"payloadIds"`
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithMetrics records operation outcomes and busy rejections.
func WithMetrics(m *metrics.Registry) Option {
	return func(g *Gateway) { g.metrics = m }
}

// Gateway owns the single-flight channel to a Tool.
type Gateway struct {
	tool    Tool
	busy    atomic.Bool
	logger  logging.Logger
	metrics *metrics.Registry

	mu       sync.Mutex
	lastOp   Operation
	lastCode int
	lastMsg  string
	lastData map[string]string
}

// NewGateway creates an idle gateway for tool.
func NewGateway(tool Tool, opts ...Option) *Gateway {
	g := &Gateway{
		tool:     tool,
		lastData: make(map[string]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.OrDefault(g.logger).With(logging.Component("iotool"))
	return g
}

// RequestTopology fetches the content stored under id. On success the
// payload holds the content keyed by id.
func (g *Gateway) RequestTopology(ctx context.Context, id string) (Result, error) {
	return g.dispatch(ctx, OpRequest, id, func(ctx context.Context) (Response, error) {
		return g.tool.Request(ctx, id)
	})
}

// StoreTopology persists content under id.
func (g *Gateway) StoreTopology(ctx context.Context, id string, content []byte) (Result, error) {
	return g.dispatch(ctx, OpStore, id, func(ctx context.Context) (Response, error) {
		return g.tool.Store(ctx, id, content)
	})
}

// DropTopology deletes the persisted copy of id.
func (g *Gateway) DropTopology(ctx context.Context, id string) (Result, error) {
	return g.dispatch(ctx, OpDrop, id, func(ctx context.Context) (Response, error) {
		return g.tool.Drop(ctx, id)
	})
}

// dispatch runs call if the gateway is idle. The tool gets a context that
// is never cancelled: a dispatched operation runs to completion.
func (g *Gateway) dispatch(ctx context.Context, op Operation, id string, call func(context.Context) (Response, error)) (Result, error) {
	if !g.busy.CompareAndSwap(false, true) {
		if g.metrics != nil {
			g.metrics.RecordIOToolBusy(string(op))
		}
		g.logger.Debug("IO-Tool busy, request rejected", logging.Operation(string(op)), logging.TopologyID(id))
		return Result{Operation: op, Status: StatusBusy}, nil
	}
	if g.metrics != nil {
		g.metrics.SetIOToolBusy(true)
	}
	defer func() {
		// Gauge first: the next holder sets it after acquiring the flag.
		if g.metrics != nil {
			g.metrics.SetIOToolBusy(false)
		}
		g.busy.Store(false)
	}()

	timer := logging.StartTimer(g.logger, "IO-Tool operation", logging.Operation(string(op)), logging.TopologyID(id))
	start := time.Now()

	resp, err := call(context.WithoutCancel(ctx))
	if err != nil {
		terr := &ExternalToolError{Op: op, ID: id, Cause: err}
		g.record(op, CodeUnreachable, terr.Error(), nil)
		g.observe(op, StatusGeneralError, start)
		timer.EndError(terr)
		return Result{
			Operation: op,
			Status:    StatusGeneralError,
			Code:      CodeUnreachable,
			Message:   terr.Error(),
			Data:      map[string]string{},
		}, terr
	}

	data := resp.Data
	if op == OpRequest && resp.Code == CodeOK {
		data = map[string]string{id: resp.Data[id]}
	}
	g.record(op, resp.Code, resp.Message, data)

	status := StatusSuccess
	if resp.Code != CodeOK {
		status = StatusGeneralError
	}
	g.observe(op, status, start)
	timer.End(logging.ReturnCode(resp.Code), logging.Status(string(status)))

	return Result{
		Operation: op,
		Status:    status,
		Code:      resp.Code,
		Message:   resp.Message,
		Data:      copyData(data),
	}, nil
}

func (g *Gateway) record(op Operation, code int, msg string, data map[string]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastOp = op
	g.lastCode = code
	g.lastMsg = msg
	g.lastData = copyData(data)
}

func (g *Gateway) observe(op Operation, status Status, start time.Time) {
	if g.metrics != nil {
		g.metrics.RecordIOToolOperation(string(op), string(status), time.Since(start))
	}
}

// State returns IDLE or BUSY.
func (g *Gateway) State() State {
	if g.busy.Load() {
		return StateBusy
	}
	return StateIdle
}

// LastReturnCode returns the code of the most recently completed operation.
func (g *Gateway) LastReturnCode() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastCode
}

// LastReturnMessage returns the message of the most recently completed operation.
func (g *Gateway) LastReturnMessage() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastMsg
}

// LastReturnData returns a copy of the most recent payload.
func (g *Gateway) LastReturnData() map[string]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return copyData(g.lastData)
}

// Session returns state and last-return fields together.
func (g *Gateway) Session() Session {
	state := g.State()

	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, len(g.lastData))
	for id := range g.lastData {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return Session{
		State:         state,
		StateName:     state.String(),
		LastOperation: g.lastOp,
		ReturnCode:    g.lastCode,
		ReturnMessage: g.lastMsg,
		PayloadIDs:    ids,
	}
}
