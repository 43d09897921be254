package engine

import (
	"errors"

	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/topology"
)

// mutation applies one store change. invalidMsg, when set, replaces the
// message of validation failures.
type mutation struct {
	op         string
	invalidMsg string
	apply      func(*Result) error
}

// mutate applies m and forward-syncs. Validation and not-found errors
// leave the store untouched and report GENERAL_ERROR. Anything else runs
// the recovery ladder.
func (e *Engine) mutate(m mutation) Result {
	var res Result
	err := e.attempt(m, &res)

	var uf *UnexpectedFailure
	switch {
	case err == nil:
		res.Status = StatusSuccess
		res.Topology = e.snapshot()
	case errors.As(err, &uf):
		res = e.recoverFrom(uf)
	default:
		res = Result{
			Status:    StatusGeneralError,
			Message:   err.Error(),
			ErrorType: errorType(err),
			Topology:  e.snapshot(),
		}
		if m.invalidMsg != "" && topology.IsValidation(err) {
			res.Message = m.invalidMsg
		}
		e.logger.Debug("mutation rejected", logging.Operation(m.op), logging.Error(err))
	}

	if e.metrics != nil {
		e.metrics.RecordMutation(m.op, string(res.Status))
	}
	e.updateSize()
	return res
}

func (e *Engine) attempt(m mutation, res *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &UnexpectedFailure{Op: m.op, Panic: r}
		}
	}()

	if err := m.apply(res); err != nil {
		if topology.IsValidation(err) || topology.IsNotFound(err) {
			return err
		}
		return &UnexpectedFailure{Op: m.op, Cause: err}
	}
	if _, err := e.sync.ForwardSync(); err != nil {
		return &UnexpectedFailure{Op: m.op, Cause: err}
	}
	return nil
}

// recoverFrom resyncs the graph against whatever the store now holds. The
// store is not rolled back. If the resync fails both representations are
// cleared.
func (e *Engine) recoverFrom(uf *UnexpectedFailure) Result {
	e.logger.Error("mutation failed, resyncing semantic graph", logging.Operation(uf.Op), logging.Error(uf))

	res := Result{
		Message:   uf.Error(),
		ErrorType: "UnexpectedFailure",
	}

	if err := e.sync.Resync(); err == nil {
		res.Status = StatusRecovered
		res.Recovery = Recovered
		res.Topology = e.snapshot()
		e.logger.Warn("semantic graph resynced", logging.Operation(uf.Op), logging.Recovery(Recovered.String()))
	} else {
		e.sync.ClearAll()
		res.Status = StatusUnresolved
		res.Recovery = Unresolved
		res.Topology = e.snapshot()
		e.logger.Error("resync failed, topology cleared",
			logging.Operation(uf.Op),
			logging.Recovery(Unresolved.String()),
			logging.Error(err),
		)
	}

	if e.metrics != nil {
		e.metrics.RecordRecovery(res.Recovery.String())
	}
	return res
}
