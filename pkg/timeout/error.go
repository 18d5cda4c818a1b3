package timeout

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	ierrors "github.com/odvcencio/ideprobe/pkg/errors"
)

var (
	// ErrTimeout matches every *TimeoutError through errors.Is.
	ErrTimeout = errors.New("timed out")
	// ErrAborted matches every abort settlement through errors.Is.
	ErrAborted = errors.New("aborted")
)

// DefaultID names operations that were not given one.
const DefaultID = "anonymous"

// TimeoutError reports a deadline that elapsed before an operation settled.
// Stack holds the frames captured when the operation was created, since the
// goroutine that fires the timer knows nothing about the original caller.
type TimeoutError struct {
	ID      string
	Reason  string
	Elapsed time.Duration
	Stack   []ierrors.Frame

	mu      sync.Mutex
	details []string
}

func newTimeoutError(id, reason string, elapsed time.Duration, stack []ierrors.Frame) *TimeoutError {
	if id == "" {
		id = DefaultID
	}
	return &TimeoutError{ID: id, Reason: reason, Elapsed: elapsed, Stack: stack}
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Promise(id=%s) timed out after %dms. Reason: %s", e.ID, e.Elapsed.Milliseconds(), e.Reason)

	e.mu.Lock()
	for _, detail := range e.details {
		sb.WriteString(" ")
		sb.WriteString(detail)
	}
	e.mu.Unlock()

	return sb.String()
}

// AppendMessage enriches the error with context found by callers up the
// chain. The original diagnostic is kept.
func (e *TimeoutError) AppendMessage(text string) *TimeoutError {
	text = strings.TrimSpace(text)
	if text == "" {
		return e
	}
	e.mu.Lock()
	e.details = append(e.details, text)
	e.mu.Unlock()
	return e
}

// Is makes errors.Is(err, ErrTimeout) hold for every timeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Code maps the timeout onto the module error taxonomy.
func (e *TimeoutError) Code() ierrors.ErrorCode {
	return ierrors.ErrCodeTimeout
}

// StackTrace formats the creation-time stack.
func (e *TimeoutError) StackTrace() string {
	return ierrors.FormatStack(e.Stack)
}

// IsTimeout reports whether err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsThrownBy reports whether err is a timeout raised by the operation named id.
func IsThrownBy(err error, id string) bool {
	var te *TimeoutError
	if !errors.As(err, &te) {
		return false
	}
	return te.ID == id
}

// AppendMessage adds text to the first error in err's chain that supports
// it. Other errors are wrapped.
func AppendMessage(err error, text string) error {
	if err == nil {
		return nil
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		te.AppendMessage(text)
		return err
	}
	var pe *ierrors.Error
	if errors.As(err, &pe) {
		pe.AppendMessage(text)
		return err
	}
	return fmt.Errorf("%w %s", err, text)
}

func abortError(id string, cause error) error {
	if id == "" {
		id = DefaultID
	}
	msg := fmt.Sprintf("Promise(id=%s) aborted", id)
	if cause == nil {
		return ierrors.Wrap(ErrAborted, ierrors.ErrCodeAborted, msg)
	}
	return ierrors.Wrap(errors.Join(ErrAborted, cause), ierrors.ErrCodeAborted, msg)
}
