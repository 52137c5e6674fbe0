package veloxcrdb

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned when a dialect is asked for a capability the
// database does not provide.
var ErrUnsupported = errors.New("veloxcrdb: unsupported by dialect")

// UnsupportedError represents a request for a capability the dialect lacks.
type UnsupportedError struct {
	Dialect string // Dialect name
	Feature string // Feature that was requested
	Reason  string // Optional explanation
}

// Error returns the error string.
func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("veloxcrdb: %s: %s", e.Dialect, e.Reason)
	}
	return fmt.Sprintf("veloxcrdb: %s does not support %s", e.Dialect, e.Feature)
}

// Is reports whether the target error matches UnsupportedError.
// This allows errors.Is(unsupportedErr, ErrUnsupported) to return true.
func (e *UnsupportedError) Is(err error) bool {
	return err == ErrUnsupported
}

// NewUnsupportedError returns a new UnsupportedError.
func NewUnsupportedError(dialect, feature, reason string) *UnsupportedError {
	return &UnsupportedError{Dialect: dialect, Feature: feature, Reason: reason}
}

// IsUnsupported returns true if the error is an UnsupportedError.
func IsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupported)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Error returned by the rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("veloxcrdb: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// IsRollbackError returns true if the error chain holds a RollbackError.
func IsRollbackError(err error) bool {
	if err == nil {
		return false
	}
	var e *RollbackError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "veloxcrdb: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("veloxcrdb: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors so errors.Is and errors.As inspect each of them.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
