package engine

import (
	"context"
	"errors"

	"github.com/dd0wney/cluso-topology/pkg/graphsync"
	"github.com/dd0wney/cluso-topology/pkg/iotool"
	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/topology"
	"github.com/dd0wney/cluso-topology/pkg/validation"
)

// gatewayResult maps a gateway result onto the client status vocabulary.
func gatewayResult(r iotool.Result) Result {
	switch r.Status {
	case iotool.StatusBusy:
		return Result{Status: StatusBusy}
	case iotool.StatusSuccess:
		code := r.Code
		return Result{Status: StatusSuccess, ReturnCode: &code, ReturnMessage: r.Message}
	default:
		code := r.Code
		return Result{Status: StatusGeneralError, ReturnCode: &code, ReturnMessage: r.Message}
	}
}

func exception(err error) Result {
	return Result{Status: StatusException, ErrorType: errorType(err), Message: err.Error()}
}

// LoadTopology fetches a topology from the IO-Tool and replaces the store
// with it, or merges it in when req.Merge is set. Rejected content leaves
// the store untouched. A failure after the content was installed runs the
// recovery ladder. The reply carries the current snapshot in every
// non-BUSY case.
func (e *Engine) LoadTopology(ctx context.Context, req validation.LoadRequest) Result {
	if err := validation.ValidateRequest(&req); err != nil {
		return missingArguments(err)
	}
	log := logging.FromContext(ctx, e.logger).With(logging.Component("engine"))

	r, err := e.gateway.RequestTopology(ctx, req.ID)
	if err != nil {
		log.Error("IO-Tool request failed", logging.TopologyID(req.ID), logging.Error(err))
		res := exception(err)
		res.Topology = e.snapshot()
		return res
	}

	res := gatewayResult(r)
	if res.Status != StatusSuccess {
		if res.Status != StatusBusy {
			res.Topology = e.snapshot()
		}
		return res
	}

	raw, ok := r.Data[req.ID]
	if !ok || raw == "" {
		res.Status = StatusGeneralError
		res.Message = "IO-Tool returned no content for topology " + req.ID
		res.Topology = e.snapshot()
		return res
	}

	mode := topology.Replace
	if req.Merge {
		mode = topology.Merge
	}
	if err := e.applyLoad([]byte(raw), mode, req.ID); err != nil {
		var uf *UnexpectedFailure
		if errors.As(err, &uf) {
			rec := e.recoverFrom(uf)
			rec.ReturnCode, rec.ReturnMessage = res.ReturnCode, res.ReturnMessage
			if e.metrics != nil {
				e.metrics.RecordMutation(uf.Op, string(rec.Status))
			}
			e.updateSize()
			return rec
		}
		log.Warn("reverse load rejected", logging.TopologyID(req.ID), logging.Error(err))
		ex := exception(err)
		ex.ReturnCode, ex.ReturnMessage = res.ReturnCode, res.ReturnMessage
		ex.Topology = e.snapshot()
		return ex
	}

	e.updateSize()
	res.Topology = e.snapshot()
	log.Info("topology loaded from IO-Tool",
		logging.TopologyID(req.ID),
		logging.String("mode", mode.String()),
		logging.Count(res.Topology.Len()))
	return res
}

// applyLoad reverse-loads raw. A panic, or a failed graph rebuild after the
// store took the content, is returned as *UnexpectedFailure.
func (e *Engine) applyLoad(raw []byte, mode topology.Mode, id string) (err error) {
	const op = "loadTopology"
	defer func() {
		if r := recover(); r != nil {
			err = &UnexpectedFailure{Op: op, Panic: r}
		}
	}()

	if err := e.sync.ReverseLoad(raw, mode, id); err != nil {
		if graphsync.IsApplied(err) {
			return &UnexpectedFailure{Op: op, Cause: err}
		}
		return err
	}
	return nil
}

// StoreTopology writes the current topology to the IO-Tool. An empty ID
// stores under the current topology id.
func (e *Engine) StoreTopology(ctx context.Context, req validation.StoreRequest) Result {
	if err := validation.ValidateRequest(&req); err != nil {
		return missingArguments(err)
	}
	log := logging.FromContext(ctx, e.logger).With(logging.Component("engine"))
	id := req.ID
	if id == "" {
		id = e.store.TopologyID()
	}
	if id == "" {
		return Result{Status: StatusMissingArguments, Message: "ID: field is required when the topology has no id"}
	}

	content, err := e.sync.Export()
	if err != nil {
		log.Error("export for store failed", logging.TopologyID(id), logging.Error(err))
		return exception(err)
	}

	r, err := e.gateway.StoreTopology(ctx, id, content)
	if err != nil {
		log.Error("IO-Tool store failed", logging.TopologyID(id), logging.Error(err))
		return exception(err)
	}
	res := gatewayResult(r)
	if res.Status == StatusSuccess {
		res.Topology = e.snapshot()
	}
	return res
}

// DropTopology deletes a topology from the IO-Tool. The in-memory store is
// not touched.
func (e *Engine) DropTopology(ctx context.Context, req validation.IDRequest) Result {
	if err := validation.ValidateRequest(&req); err != nil {
		return missingArguments(err)
	}
	log := logging.FromContext(ctx, e.logger).With(logging.Component("engine"))
	r, err := e.gateway.DropTopology(ctx, req.ID)
	if err != nil {
		log.Error("IO-Tool drop failed", logging.TopologyID(req.ID), logging.Error(err))
		return exception(err)
	}
	return gatewayResult(r)
}

// IOToolStatus reports the gateway session.
func (e *Engine) IOToolStatus() Result {
	session := e.gateway.Session()
	code := session.ReturnCode
	return Result{
		Status:        StatusSuccess,
		ReturnCode:    &code,
		ReturnMessage: session.ReturnMessage,
		IOTool:        &session,
	}
}
