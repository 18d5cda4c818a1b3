package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"
	ErrCodeConfigParse   ErrorCode = "CONFIG_PARSE"
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Waiting errors
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	ErrCodeAborted ErrorCode = "ABORTED"

	// Programming errors. Never retried.
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
	ErrCodeLogic             ErrorCode = "LOGIC"

	// Search errors
	ErrCodeScrollItemNotFound ErrorCode = "SCROLL_ITEM_NOT_FOUND"
	ErrCodeTreeItemNotFound   ErrorCode = "TREE_ITEM_NOT_FOUND"

	// Remote browser errors
	ErrCodeStaleElement  ErrorCode = "STALE_ELEMENT"
	ErrCodeNoSuchElement ErrorCode = "NO_SUCH_ELEMENT"

	// Generic errors
	ErrCodeInternal       ErrorCode = "INTERNAL"
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
)

// Error represents a structured ideprobe error
type Error struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Context    map[string]any
	Stack      []Frame
	Retryable  bool
	Details    []string
}

// Frame represents a stack frame
type Frame struct {
	Function string
	File     string
	Line     int
}

// New creates a new structured error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
		Stack:   captureStack(2), // Skip New and caller
	}
}

// Newf creates a new structured error with a formatted message
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Context: make(map[string]any),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with ideprobe error context
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Context:    make(map[string]any),
		Stack:      captureStack(2),
	}
}

// ContractViolation reports a misuse of an API by its caller.
func ContractViolation(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeContractViolation,
		Message: fmt.Sprintf(format, args...),
		Context: make(map[string]any),
		Stack:   captureStack(2),
	}
}

// Logic reports a broken internal assumption, such as an unsorted collection
// handed to a binary search.
func Logic(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeLogic,
		Message: fmt.Sprintf(format, args...),
		Context: make(map[string]any),
		Stack:   captureStack(2),
	}
}

// WithContext adds context key-value pairs to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRetryable marks the error as retryable
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// AppendMessage adds a detail discovered by a caller further up the chain.
func (e *Error) AppendMessage(text string) *Error {
	if strings.TrimSpace(text) == "" {
		return e
	}
	e.Details = append(e.Details, text)
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%s] %s", e.Code, e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s: %v", k, e.Context[k])
		}
		sb.WriteString("}")
	}

	for _, detail := range e.Details {
		sb.WriteString(" ")
		sb.WriteString(detail)
	}

	if e.Underlying != nil {
		fmt.Fprintf(&sb, ": %v", e.Underlying)
	}

	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/As
func (e *Error) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether this error is retryable
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// StackTrace returns a formatted stack trace
func (e *Error) StackTrace() string {
	return FormatStack(e.Stack)
}

// FormatStack renders frames the same way for every error type in the module.
func FormatStack(frames []Frame) string {
	var sb strings.Builder

	sb.WriteString("Stack trace:\n")
	for i, frame := range frames {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, frame.String())
		fmt.Fprintf(&sb, "     %s:%d\n", frame.File, frame.Line)
	}

	return sb.String()
}

// String formats a stack frame
func (f Frame) String() string {
	return f.Function
}

// CaptureStack records the caller's stack. skip=0 starts at the caller of
// CaptureStack.
func CaptureStack(skip int) []Frame {
	return captureStack(skip + 2)
}

// captureStack captures the current call stack
func captureStack(skip int) []Frame {
	const maxDepth = 32
	var pcs [maxDepth]uintptr

	n := runtime.Callers(skip+1, pcs[:])
	if n == 0 {
		return nil
	}

	frames := make([]Frame, 0, n)
	iter := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := iter.Next()
		if frame.Function != "" {
			frames = append(frames, Frame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})
		}
		if !more {
			break
		}
	}

	return frames
}

// Coded is implemented by domain errors that carry a code without being an
// *Error, such as timeouts and not-found results.
type Coded interface {
	error
	Code() ErrorCode
}

// IsCode checks if an error chain carries a specific error code
func IsCode(err error, code ErrorCode) bool {
	found := false
	walk(err, func(e error) bool {
		switch t := e.(type) {
		case *Error:
			found = t.Code == code
		case Coded:
			found = t.Code() == code
		}
		return !found
	})
	return found
}

// walk visits err and everything it wraps, depth first, until visit
// returns false.
func walk(err error, visit func(error) bool) bool {
	if err == nil {
		return true
	}
	if !visit(err) {
		return false
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return walk(u.Unwrap(), visit)
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if !walk(e, visit) {
				return false
			}
		}
	}
	return true
}

// GetCode extracts the outermost error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	code := ErrCodeInternal
	walk(err, func(e error) bool {
		switch t := e.(type) {
		case *Error:
			code = t.Code
			return false
		case Coded:
			code = t.Code()
			return false
		}
		return true
	})
	return code
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var probeErr *Error
	if !errors.As(err, &probeErr) {
		return false
	}

	return probeErr.Retryable
}

// IsContractViolation reports programming errors raised by misuse of an API.
func IsContractViolation(err error) bool {
	return IsCode(err, ErrCodeContractViolation)
}

// IsLogic reports broken internal assumptions.
func IsLogic(err error) bool {
	return IsCode(err, ErrCodeLogic)
}
