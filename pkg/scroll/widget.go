package scroll

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/odvcencio/ideprobe/pkg/browser"
	"github.com/odvcencio/ideprobe/pkg/observability"
	"github.com/odvcencio/ideprobe/pkg/retry"
	"github.com/odvcencio/ideprobe/pkg/telemetry"
	"github.com/odvcencio/ideprobe/pkg/timeout"
)

// DefaultMaxStaleRefetch bounds window re-fetches within one search attempt.
const DefaultMaxStaleRefetch = 5

// edgeTolerance absorbs sub-pixel scroll positions.
const edgeTolerance = 1

// Direction is a paging direction.
type Direction int

const (
	Next Direction = iota
	Previous
)

func (d Direction) String() string {
	if d == Previous {
		return "previous"
	}
	return "next"
}

// Options configures a Widget.
type Options struct {
	// ID prefixes the ids of the widget's retry sessions.
	ID string
	// PageTimeout bounds the wait for a new window after a page turn. The
	// caller's remaining deadline still applies.
	PageTimeout timeout.Deadline
	// Interval paces polling.
	Interval time.Duration
	// MaxStaleRefetch bounds window re-fetches inside one attempt before
	// the attempt yields to the outer retry. Zero means the default.
	MaxStaleRefetch int
	// IsStale classifies errors that invalidate the window. Defaults to
	// browser.IsStale.
	IsStale func(error) bool

	Logger *observability.Logger
	Hub    *telemetry.Hub
}

// Widget searches and pages a virtualized Collection.
type Widget[T any] struct {
	c      Collection[T]
	opts   Options
	logger *observability.Logger

	// pageMu serializes page turns on this widget.
	pageMu sync.Mutex
}

// New wraps c.
func New[T any](c Collection[T], opts Options) *Widget[T] {
	if opts.ID == "" {
		opts.ID = "scroll"
	}
	if opts.MaxStaleRefetch <= 0 {
		opts.MaxStaleRefetch = DefaultMaxStaleRefetch
	}
	if opts.IsStale == nil {
		opts.IsStale = browser.IsStale
	}
	return &Widget[T]{c: c, opts: opts, logger: observability.OrNop(opts.Logger)}
}

// Collection returns the wrapped collection.
func (w *Widget[T]) Collection() Collection[T] { return w.c }

// ActiveItem returns the collection's focused item.
func (w *Widget[T]) ActiveItem(ctx context.Context) (T, error) {
	return w.c.ActiveItem(ctx)
}

// VisibleItems returns the displayed window. A transiently empty render is
// polled until d expires; an empty slice is only returned when the
// collection reports it has no items at all.
func (w *Widget[T]) VisibleItems(ctx context.Context, d timeout.Deadline) ([]T, error) {
	return retry.Do(ctx, func(ctx context.Context) ([]T, bool, error) {
		items, err := w.fetchWindow(ctx)
		if err != nil {
			if w.opts.IsStale(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
		if len(items) > 0 {
			return items, true, nil
		}
		has, err := w.c.HasItems(ctx)
		if err != nil {
			return nil, false, err
		}
		return items, !has, nil
	}, w.retryOptions(d, "visibleItems", "no visible items rendered"))
}

func (w *Widget[T]) fetchWindow(ctx context.Context) ([]T, error) {
	items, err := w.c.Items(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]T, 0, len(items))
	for _, item := range items {
		shown, err := w.c.Displayed(ctx, item)
		if err != nil {
			return nil, err
		}
		if shown {
			visible = append(visible, item)
		}
	}
	return visible, nil
}

type scrollState struct {
	top, height, client int
}

func (s scrollState) scrollable() bool { return s.height > s.client+edgeTolerance }

func (s scrollState) has(dir Direction) bool {
	if !s.scrollable() {
		return false
	}
	if dir == Previous {
		return s.top > edgeTolerance
	}
	return s.top+s.client < s.height-edgeTolerance
}

func (w *Widget[T]) scrollState(ctx context.Context) (scrollState, error) {
	proxy := w.c.ScrollProxy()
	var st scrollState
	var err error
	if st.top, err = proxy.ScrollTop(ctx); err != nil {
		return st, err
	}
	if st.height, err = proxy.ScrollHeight(ctx); err != nil {
		return st, err
	}
	if st.client, err = proxy.ClientHeight(ctx); err != nil {
		return st, err
	}
	return st, nil
}

// HasNextPage reports whether a scrollbar exists and is not at the bottom.
func (w *Widget[T]) HasNextPage(ctx context.Context) (bool, error) {
	st, err := w.scrollState(ctx)
	if err != nil {
		return false, err
	}
	return st.has(Next), nil
}

// HasPreviousPage reports whether a scrollbar exists and is not at the top.
func (w *Widget[T]) HasPreviousPage(ctx context.Context) (bool, error) {
	st, err := w.scrollState(ctx)
	if err != nil {
		return false, err
	}
	return st.has(Previous), nil
}

// NextPage scrolls so that last, the last visible item, becomes the top of
// the new window, and returns that window.
func (w *Widget[T]) NextPage(ctx context.Context, last T, d timeout.Deadline) ([]T, error) {
	return w.turn(ctx, Next, last, d)
}

// PreviousPage scrolls so that first, the first visible item, becomes the
// bottom of the new window, and returns that window.
func (w *Widget[T]) PreviousPage(ctx context.Context, first T, d timeout.Deadline) ([]T, error) {
	return w.turn(ctx, Previous, first, d)
}

// ScrollToTop resets the scroll position.
func (w *Widget[T]) ScrollToTop(ctx context.Context) error {
	w.pageMu.Lock()
	defer w.pageMu.Unlock()
	return w.c.ScrollProxy().SetScrollTop(ctx, 0)
}

func (w *Widget[T]) turn(ctx context.Context, dir Direction, anchor T, d timeout.Deadline) ([]T, error) {
	w.pageMu.Lock()
	defer w.pageMu.Unlock()

	st, err := w.scrollState(ctx)
	if err != nil {
		return nil, err
	}
	if !st.has(dir) {
		return nil, &ItemNotFoundError{Reason: fmt.Sprintf("no %s page", dir)}
	}

	before, err := w.fetchWindow(ctx)
	if err != nil {
		return nil, err
	}
	beforeSig, err := w.signature(ctx, before)
	if err != nil {
		return nil, err
	}

	anchorTop, anchorHeight, err := w.c.Bounds(ctx, anchor)
	if err != nil {
		return nil, err
	}
	anchorKey, err := w.c.Key(ctx, anchor)
	if err != nil {
		return nil, err
	}

	target := anchorTop
	if dir == Previous {
		target = anchorTop + anchorHeight - st.client
	}
	// An anchor that is already at the edge would not move the window.
	if dir == Next && target <= st.top {
		target = st.top + st.client
	}
	if dir == Previous && target >= st.top {
		target = st.top - st.client
	}
	target = clamp(target, 0, st.height-st.client)

	if err := w.c.ScrollProxy().SetScrollTop(ctx, target); err != nil {
		return nil, err
	}

	window, err := retry.Do(ctx, func(ctx context.Context) ([]T, bool, error) {
		items, err := w.fetchWindow(ctx)
		if err != nil {
			if w.opts.IsStale(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
		if len(items) == 0 {
			return nil, false, nil
		}
		sig, err := w.signature(ctx, items)
		if err != nil {
			if w.opts.IsStale(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
		if sig != beforeSig {
			return items, true, nil
		}
		// Near the end of the list the scroll can move by less than a row,
		// which renders the same window. That is the result when the old
		// window already spans the new viewport.
		now, err := w.scrollState(ctx)
		if err != nil {
			return nil, false, err
		}
		return items, now.top != st.top && covers(dir, anchorTop, anchorHeight, now), nil
	}, w.retryOptions(d, dir.String()+"Page", fmt.Sprintf("window did not move past %q", anchorKey)))
	if err != nil {
		return nil, err
	}

	observability.PageTurns.WithLabelValues(dir.String()).Inc()
	w.logger.PageTurned(dir.String(), anchorKey, len(window))
	w.opts.Hub.Publish(telemetry.Event{
		Type:        telemetry.EventPageTurned,
		OperationID: w.opts.ID,
		Data: map[string]any{
			"direction":  dir.String(),
			"anchor":     anchorKey,
			"scroll_top": target,
			"visible":    len(window),
		},
	})
	return window, nil
}

// covers reports whether the anchor edge of the old window still bounds the
// viewport at s, so no unseen item can be rendered in direction dir.
func covers(dir Direction, anchorTop, anchorHeight int, s scrollState) bool {
	if dir == Next {
		return anchorTop+anchorHeight >= s.top+s.client
	}
	return anchorTop <= s.top
}

// signature identifies a window by its edges.
func (w *Widget[T]) signature(ctx context.Context, items []T) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	first, err := w.c.Key(ctx, items[0])
	if err != nil {
		return "", err
	}
	last, err := w.c.Key(ctx, items[len(items)-1])
	if err != nil {
		return "", err
	}
	return strings.Join([]string{first, last, fmt.Sprint(len(items))}, "\x00"), nil
}

func (w *Widget[T]) retryOptions(d timeout.Deadline, op, message string) retry.Options {
	return retry.Options{
		Timeout:  d,
		ID:       w.opts.ID + "." + op,
		Message:  message,
		Interval: w.opts.Interval,
		Logger:   w.opts.Logger,
		Hub:      w.opts.Hub,
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
