package topology

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("element not found")
	ErrSemantic    = errors.New("topology content violates invariants")
	ErrDuplicateID = errors.New("duplicate identifier")
)

// TopologyError provides structured error information for store operations.
type TopologyError struct {
	Op    string // Operation that failed (e.g., "create", "remove", "apply")
	Kind  Kind   // Element kind, empty when not known
	ID    string // Element ID (if applicable)
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *TopologyError) Error() string {
	switch {
	case e.Kind != "" && e.ID != "":
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Kind, e.ID, e.Cause)
	case e.ID != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Cause)
	case e.Kind != "":
		return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Cause)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *TopologyError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *TopologyError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ValidationError reports malformed caller input. The store is untouched.
type ValidationError struct {
	TopologyError
	Field string
}

// NotFoundError reports an unknown element identifier.
type NotFoundError struct {
	TopologyError
}

// SemanticError reports well-formed content that violates topology
// invariants: dangling references, bad ranges, duplicate identifiers.
type SemanticError struct {
	TopologyError
}

func newValidationError(op string, kind Kind, p *problem) *ValidationError {
	return &ValidationError{
		TopologyError: TopologyError{
			Op:    op,
			Kind:  kind,
			Cause: fmt.Errorf("%w: %s: %s", ErrValidation, p.field, p.reason),
		},
		Field: p.field,
	}
}

func newNotFoundError(op, id string) *NotFoundError {
	return &NotFoundError{TopologyError{Op: op, ID: id, Cause: ErrNotFound}}
}

// NewSemanticError builds a SemanticError for element id. cause may be a
// sentinel such as ErrDuplicateID; it is wrapped together with ErrSemantic.
func NewSemanticError(op string, kind Kind, id string, cause error) *SemanticError {
	return &SemanticError{TopologyError{
		Op:    op,
		Kind:  kind,
		ID:    id,
		Cause: joinSemantic(cause),
	}}
}

func joinSemantic(cause error) error {
	if errors.Is(cause, ErrSemantic) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrSemantic, cause)
}

// problem describes a single invariant violation on one field.
type problem struct {
	field  string
	reason string
}

func (p *problem) Error() string {
	return p.field + ": " + p.reason
}

func invalid(field, format string, args ...any) *problem {
	return &problem{field: field, reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsSemantic reports whether err is a SemanticError.
func IsSemantic(err error) bool {
	var se *SemanticError
	return errors.As(err, &se)
}
