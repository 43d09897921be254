package graphsync

import (
	"errors"
	"fmt"
)

var errMultiValued = errors.New("multi-valued property")

// ParseError reports raw content that is not well-formed N-Triples. The
// store is untouched.
type ParseError struct {
	TopologyID string
	Cause      error
}

func (e *ParseError) Error() string {
	if e.TopologyID != "" {
		return fmt.Sprintf("parse topology %s: %v", e.TopologyID, e.Cause)
	}
	return fmt.Sprintf("parse topology: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// SyncError reports a failed forward sync. Panics raised while encoding
// are captured here with Panic set.
type SyncError struct {
	Revision uint64
	Panic    any
	Cause    error
}

func (e *SyncError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("forward sync at revision %d panicked: %v", e.Revision, e.Panic)
	}
	return fmt.Sprintf("forward sync at revision %d: %v", e.Revision, e.Cause)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// AppliedError reports a reverse load whose content was installed in the
// store but whose graph could not be rebuilt. The store and the model
// disagree until a resync succeeds.
type AppliedError struct {
	TopologyID string
	Cause      error
}

func (e *AppliedError) Error() string {
	return fmt.Sprintf("topology %s loaded but graph not rebuilt: %v", e.TopologyID, e.Cause)
}

func (e *AppliedError) Unwrap() error {
	return e.Cause
}

// IsApplied reports whether err is an AppliedError.
func IsApplied(err error) bool {
	var ae *AppliedError
	return errors.As(err, &ae)
}

// IsParseError reports whether err is a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
