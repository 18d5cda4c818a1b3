package tree

import (
	"errors"
	"fmt"
	"strings"

	ierrors "github.com/odvcencio/ideprobe/pkg/errors"
)

var (
	// ErrSearchInProgress is returned when a path search is started on a
	// widget that is already running one.
	ErrSearchInProgress = errors.New("path search already in progress")

	// errDepthMismatch marks a row whose rendered depth disagrees with its
	// path, which happens while indentation is still being applied.
	errDepthMismatch = errors.New("row depth does not match its path")
)

// ItemNotFoundError is the terminal failure of a path search.
type ItemNotFoundError struct {
	Path   []string
	Reason string
	Err    error
}

func (e *ItemNotFoundError) Error() string {
	if len(e.Path) == 0 {
		return "tree item not found: " + e.Reason
	}
	return fmt.Sprintf("tree item not found: %s: %s", strings.Join(e.Path, "/"), e.Reason)
}

func (e *ItemNotFoundError) Unwrap() error { return e.Err }

// Code maps the error onto the module taxonomy.
func (e *ItemNotFoundError) Code() ierrors.ErrorCode {
	return ierrors.ErrCodeTreeItemNotFound
}

// IsItemNotFound reports whether err is or wraps an *ItemNotFoundError.
func IsItemNotFound(err error) bool {
	var nf *ItemNotFoundError
	return errors.As(err, &nf)
}

func notFound(path []Segment, err error, format string, args ...any) *ItemNotFoundError {
	return &ItemNotFoundError{Path: Labels(path), Reason: fmt.Sprintf(format, args...), Err: err}
}
