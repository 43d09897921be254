package engine

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-topology/pkg/graphsync"
	"github.com/dd0wney/cluso-topology/pkg/iotool"
	"github.com/dd0wney/cluso-topology/pkg/topology"
)

// UnexpectedFailure is any fault during a mutation other than a validation
// or not-found error, including a recovered panic and a failed
// post-mutation forward sync.
type UnexpectedFailure struct {
	Op    string
	Panic any
	Cause error
}

func (e *UnexpectedFailure) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("%s: unexpected panic: %v", e.Op, e.Panic)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *UnexpectedFailure) Unwrap() error {
	return e.Cause
}

// errorType names the failure class reported in Result.ErrorType.
func errorType(err error) string {
	// Semantic errors may wrap validation errors, so they are tested first.
	switch {
	case errors.As(err, new(*graphsync.ParseError)):
		return "ParseError"
	case errors.As(err, new(*topology.SemanticError)):
		return "SemanticError"
	case errors.As(err, new(*topology.ValidationError)):
		return "ValidationError"
	case errors.As(err, new(*topology.NotFoundError)):
		return "NotFoundError"
	case errors.As(err, new(*iotool.ExternalToolError)):
		return "ExternalToolError"
	case errors.As(err, new(*graphsync.SyncError)):
		return "SyncError"
	default:
		return "UnexpectedFailure"
	}
}
