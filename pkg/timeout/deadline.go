package timeout

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ierrors "github.com/odvcencio/ideprobe/pkg/errors"
)

// Deadline bounds how long an operation may wait. The zero value is
// unbounded: the operation blocks until it settles. A bounded deadline of zero
// means exactly one attempt with no retry.
type Deadline struct {
	d       time.Duration
	bounded bool
}

// Unbounded waits forever.
var Unbounded = Deadline{}

// After returns a deadline of d. Negative durations are a programming error
// and panic immediately.
func After(d time.Duration) Deadline {
	if d < 0 {
		panic(ierrors.ContractViolation("deadline must not be negative, got %s", d))
	}
	return Deadline{d: d, bounded: true}
}

// Once allows a single attempt.
func Once() Deadline {
	return Deadline{bounded: true}
}

// Millis is After expressed in milliseconds.
func Millis(ms int64) Deadline {
	return After(time.Duration(ms) * time.Millisecond)
}

// Parse reads "none", "", "0", an integer number of milliseconds, or a Go
// duration string. Unlike After it reports negative values as an error.
func Parse(raw string) (Deadline, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "", "none", "unbounded", "forever":
		return Unbounded, nil
	case "once":
		return Once(), nil
	}

	var d time.Duration
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		d = time.Duration(ms) * time.Millisecond
	} else {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return Unbounded, ierrors.Wrap(perr, ierrors.ErrCodeInvalidInput, fmt.Sprintf("invalid deadline %q", raw))
		}
		d = parsed
	}
	if d < 0 {
		return Unbounded, ierrors.Newf(ierrors.ErrCodeContractViolation, "deadline must not be negative, got %q", raw)
	}
	return Deadline{d: d, bounded: true}, nil
}

// IsBounded reports whether the deadline ever expires.
func (d Deadline) IsBounded() bool {
	return d.bounded
}

// IsOnce reports the single-attempt deadline.
func (d Deadline) IsOnce() bool {
	return d.bounded && d.d == 0
}

// Duration returns the bound. Unbounded deadlines report zero.
func (d Deadline) Duration() time.Duration {
	return d.d
}

// Remaining returns what is left of d for an operation that began at started.
// An exhausted bounded deadline collapses to Once, so nested calls still get
// their single attempt.
func (d Deadline) Remaining(started time.Time) Deadline {
	if !d.bounded {
		return d
	}
	left := d.d - time.Since(started)
	if left < 0 {
		left = 0
	}
	return Deadline{d: left, bounded: true}
}

// Min returns the tighter of two deadlines.
func (d Deadline) Min(other Deadline) Deadline {
	switch {
	case !d.bounded:
		return other
	case !other.bounded:
		return d
	case other.d < d.d:
		return other
	default:
		return d
	}
}

// Or returns fallback when d is unbounded.
func (d Deadline) Or(fallback Deadline) Deadline {
	if d.bounded {
		return d
	}
	return fallback
}

func (d Deadline) String() string {
	if !d.bounded {
		return "none"
	}
	if d.d == 0 {
		return "once"
	}
	return d.d.String()
}

// UnmarshalYAML accepts the forms understood by Parse.
func (d *Deadline) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("deadline: expected scalar, got %v at line %d", node.Tag, node.Line)
	}
	parsed, err := Parse(node.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML writes the form read back by UnmarshalYAML.
func (d Deadline) MarshalYAML() (any, error) {
	if d.IsOnce() {
		return "0", nil
	}
	return d.String(), nil
}
