// Package mverrors defines the typed error kinds used throughout the mirror
// controller: validation failures never touch
// the device, device failures propagate from the wire, convergence failures
// come from the move iteration or the geometry solver, superseded commands
// are not failures in the diagnostic sense, and internal errors indicate a
// broken invariant.
package mverrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies which of the five error categories an error belongs to.
type Kind int

const (
	// KindValidation means a user command's argument was rejected before
	// any device line was emitted.
	KindValidation Kind = iota
	// KindDevice means the controller replied with an error, timed out, or
	// the connection was lost.
	KindDevice
	// KindConvergence means a move's residual could not be driven below
	// tolerance, or the geometry solver failed to converge.
	KindConvergence
	// KindSuperseded means a user command was preempted by stop or reset.
	KindSuperseded
	// KindInternal means an invariant was violated.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindDevice:
		return "DeviceError"
	case KindConvergence:
		return "ConvergenceError"
	case KindSuperseded:
		return "Superseded"
	case KindInternal:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Error is the concrete type returned for every kind in this package. Callers
// should use the Is helper or Kind() rather than type-asserting directly.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap lets errors.Is/errors.As see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// Kind reports which of the five categories this error belongs to.
func (e *Error) Kind() Kind { return e.kind }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// NewDeviceError builds a DeviceError, optionally wrapping a lower-level
// cause (a socket error, a parse failure, etc).
func NewDeviceError(cause error, format string, args ...interface{}) *Error {
	return &Error{kind: KindDevice, msg: fmt.Sprintf(format, args...), err: cause}
}

// NewConvergenceError builds a ConvergenceError describing why an iteration
// or a geometry fit failed to converge.
func NewConvergenceError(format string, args ...interface{}) *Error {
	return &Error{kind: KindConvergence, msg: fmt.Sprintf(format, args...)}
}

// NewSupersededError builds a Superseded pseudo-error: a user command's
// terminal state when preempted by stop or reset, not a diagnostic failure.
func NewSupersededError(format string, args ...interface{}) *Error {
	return &Error{kind: KindSuperseded, msg: fmt.Sprintf(format, args...)}
}

// NewInternalError builds an InternalError for a broken invariant.
func NewInternalError(format string, args ...interface{}) *Error {
	return &Error{kind: KindInternal, msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.kind == kind
	}
	return false
}

// Wrap attaches additional context to err while preserving its kind, for the
// common case of bubbling a lower-level DeviceError up through a few call
// frames without losing its category.
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		return &Error{kind: me.kind, msg: fmt.Sprintf(format, args...) + ": " + me.msg, err: me.err}
	}
	return errors.Wrapf(err, format, args...)
}
