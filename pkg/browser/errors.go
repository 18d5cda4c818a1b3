package browser

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable     = errors.New("browser runtime unavailable")
	ErrNotImplemented  = errors.New("browser runtime not implemented")
	ErrSessionClosed   = errors.New("browser session closed")
	ErrNoSuchElement   = errors.New("no such element")
	ErrStaleElement    = errors.New("stale element reference")
	ErrInvalidSelector = errors.New("invalid selector")
	ErrScriptResult    = errors.New("unexpected script result")
)

// W3C WebDriver error codes the core distinguishes.
const (
	CodeNoSuchElement   = "no such element"
	CodeStaleElement    = "stale element reference"
	CodeInvalidSelector = "invalid selector"
	CodeUnavailable     = "unavailable"
	CodeSessionClosed   = "invalid session id"
)

// DriverError wraps errors from a remote browser with the protocol error code.
type DriverError struct {
	Code    string
	Message string
	Err     error
}

func (e *DriverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("driver error [%s]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("driver error [%s]: %s", e.Code, e.Message)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the protocol code, so callers
// can use errors.Is(err, ErrStaleElement) regardless of adapter.
func (e *DriverError) Is(target error) bool {
	sentinel := sentinelFor(e.Code)
	return sentinel != nil && sentinel == target
}

// NewDriverError creates a new DriverError.
func NewDriverError(code, message string) *DriverError {
	return &DriverError{Code: code, Message: message}
}

// WrapDriverError wraps an existing error with protocol context.
func WrapDriverError(code, message string, err error) *DriverError {
	return &DriverError{Code: code, Message: message, Err: err}
}

func sentinelFor(code string) error {
	switch code {
	case CodeNoSuchElement:
		return ErrNoSuchElement
	case CodeStaleElement:
		return ErrStaleElement
	case CodeInvalidSelector:
		return ErrInvalidSelector
	case CodeUnavailable:
		return ErrUnavailable
	case CodeSessionClosed:
		return ErrSessionClosed
	}
	return nil
}

// IsStale reports whether err means an element handle was invalidated by a
// re-render and must be re-acquired.
func IsStale(err error) bool {
	return err != nil && errors.Is(err, ErrStaleElement)
}

// IsNoSuchElement reports whether a lookup matched nothing.
func IsNoSuchElement(err error) bool {
	return err != nil && errors.Is(err, ErrNoSuchElement)
}

// IsRetryableError returns true if the error might succeed on retry.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrStaleElement) ||
		errors.Is(err, ErrNoSuchElement) ||
		errors.Is(err, ErrUnavailable)
}
