package iotool

import (
	"errors"
	"fmt"
)

// ErrToolUnreachable is wrapped by every ExternalToolError.
var ErrToolUnreachable = errors.New("IO-Tool unreachable")

// ExternalToolError reports that the IO-Tool could not be reached. The
// gateway is back to IDLE when this error is returned.
type ExternalToolError struct {
	Op    Operation
	ID    string
	Cause error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("%s topology %s: %v: %v", e.Op, e.ID, ErrToolUnreachable, e.Cause)
}

func (e *ExternalToolError) Unwrap() []error {
	return []error{ErrToolUnreachable, e.Cause}
}
