package scroll

import (
	"errors"
	"fmt"

	ierrors "github.com/odvcencio/ideprobe/pkg/errors"
)

var (
	// ErrImpossibleComparator marks a window whose first item sorts after
	// the sought key while its last item sorts before it, or a search that
	// had to page back over ground it already covered. Either way the
	// collection is not sorted the way the comparator claims.
	ErrImpossibleComparator = errors.New("impossible comparator result")
	// ErrNonContiguousWindow marks a rendered window that skips rows.
	ErrNonContiguousWindow = errors.New("visible window is not contiguous")
)

// ItemNotFoundError reports an item missing from every reachable page.
// Callers use it to decide between expanding more of the UI and giving up.
type ItemNotFoundError struct {
	Reason  string
	Message string
}

func (e *ItemNotFoundError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("scroll item not found: %s", e.Reason)
	}
	return fmt.Sprintf("scroll item not found: %s: %s", e.Reason, e.Message)
}

// Code maps the error onto the module taxonomy.
func (e *ItemNotFoundError) Code() ierrors.ErrorCode {
	return ierrors.ErrCodeScrollItemNotFound
}

// IsItemNotFound reports whether err is or wraps an *ItemNotFoundError.
func IsItemNotFound(err error) bool {
	var nf *ItemNotFoundError
	return errors.As(err, &nf)
}

func impossible(format string, args ...any) error {
	return ierrors.Wrap(ErrImpossibleComparator, ierrors.ErrCodeLogic, fmt.Sprintf(format, args...))
}

func nonContiguous(format string, args ...any) error {
	return ierrors.Wrap(ErrNonContiguousWindow, ierrors.ErrCodeLogic, fmt.Sprintf(format, args...))
}
