package scroll

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/odvcencio/ideprobe/pkg/observability"
	"github.com/odvcencio/ideprobe/pkg/retry"
	"github.com/odvcencio/ideprobe/pkg/telemetry"
	"github.com/odvcencio/ideprobe/pkg/timeout"
)

type stepKind int

const (
	// stepFound settles the search with item.
	stepFound stepKind = iota
	// stepPage turns a page in dir, anchored at anchor.
	stepPage
	// stepExhausted means no reachable page holds the item.
	stepExhausted
	// stepRetry yields to the outer retry.
	stepRetry
)

type step[T any] struct {
	kind   stepKind
	item   T
	dir    Direction
	anchor T
	reason string
}

func found[T any](item T) step[T] { return step[T]{kind: stepFound, item: item} }

func page[T any](dir Direction, anchor T) step[T] {
	return step[T]{kind: stepPage, dir: dir, anchor: anchor}
}

func exhausted[T any](format string, args ...any) step[T] {
	return step[T]{kind: stepExhausted, reason: fmt.Sprintf(format, args...)}
}

// walk evaluates successive windows with next until it settles. Stale
// errors re-fetch the window, up to MaxStaleRefetch times, and then yield
// to the outer retry. Paging back over covered ground is a logic error,
// except from a single-row window.
func (w *Widget[T]) walk(ctx context.Context, scope, message string, pageDeadline func() timeout.Deadline,
	next func(ctx context.Context, window []T) (step[T], error)) (T, bool, error) {
	var zero T
	refetches := 0
	var paged *Direction

	window, err := w.fetchWindow(ctx)
	for {
		if err == nil {
			var s step[T]
			s, err = next(ctx, window)
			if err == nil {
				switch s.kind {
				case stepFound:
					return s.item, true, nil
				case stepExhausted:
					return zero, false, &ItemNotFoundError{Reason: s.reason, Message: message}
				case stepRetry:
					return zero, false, nil
				case stepPage:
					if paged != nil && *paged != s.dir {
						if len(window) == 1 {
							// one row per page: the key sorts between two neighbours
							return zero, false, &ItemNotFoundError{Reason: "no item between adjacent rows", Message: message}
						}
						return zero, false, impossible("%s: search turned %s after paging %s", scope, s.dir, *paged)
					}
					dir := s.dir
					paged = &dir
					window, err = w.turn(ctx, s.dir, s.anchor, pageDeadline())
					if err != nil && timeout.IsTimeout(err) {
						// the window never settled; let the outer deadline decide
						return zero, false, nil
					}
					continue
				}
			}
		}

		if !w.opts.IsStale(err) {
			return zero, false, err
		}
		if refetches >= w.opts.MaxStaleRefetch {
			return zero, false, nil
		}
		refetches++
		observability.StaleRefetches.WithLabelValues(scope).Inc()
		w.logger.StaleRecovered(scope, refetches, err)
		w.opts.Hub.Publish(telemetry.Event{
			Type:        telemetry.EventStaleRecovered,
			OperationID: w.opts.ID,
			Data:        map[string]any{"scope": scope, "attempt": refetches},
		})
		window, err = w.fetchWindow(ctx)
	}
}

// checkContiguous rejects windows that skip rows, when the collection can
// tell.
func (w *Widget[T]) checkContiguous(ctx context.Context, window []T) error {
	indexed, ok := w.c.(Indexed[T])
	if !ok || len(window) < 2 {
		return nil
	}
	prev := -1
	for i, item := range window {
		idx, err := indexed.Index(ctx, item)
		if err != nil {
			return err
		}
		if idx < 0 {
			return nil
		}
		if i > 0 && idx != prev+1 {
			return nonContiguous("row %d follows row %d", idx, prev)
		}
		prev = idx
	}
	return nil
}

func (w *Widget[T]) pageDeadline(d timeout.Deadline, started time.Time) func() timeout.Deadline {
	return func() timeout.Deadline {
		return d.Remaining(started).Min(w.opts.PageTimeout)
	}
}

// FindItemWithComparator binary searches a collection sorted consistently
// with cmp. The visible window is searched first; when both edges lie on
// the same side of the key the search pages that way. A window whose edges
// contradict each other fails with a logic error instead of a guess.
func (w *Widget[T]) FindItemWithComparator(ctx context.Context, cmp Comparator[T], d timeout.Deadline, message string) (T, error) {
	ctx, span := observability.StartSpan(ctx, "scroll.FindItemWithComparator",
		trace.WithAttributes(
			observability.AttrOperationID.String(w.opts.ID),
			observability.AttrDeadline.String(d.String()),
		))
	defer span.End()

	started := time.Now()
	item, err := retry.Do(ctx, func(ctx context.Context) (T, bool, error) {
		return w.walk(ctx, "comparator", message, w.pageDeadline(d, started), func(ctx context.Context, window []T) (step[T], error) {
			return w.compareWindow(ctx, window, cmp)
		})
	}, w.retryOptions(d, "findItemWithComparator", message))

	outcome := observability.OutcomeResolved
	switch {
	case err == nil:
	case IsItemNotFound(err):
		outcome = observability.OutcomeNotFound
	case timeout.IsTimeout(err):
		outcome = observability.OutcomeTimedOut
	default:
		outcome = observability.OutcomeRejected
	}
	observability.ComparatorSearches.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	observability.SetAttributes(ctx, observability.AttrOutcome.String(outcome))
	observability.RecordError(ctx, err)
	if err == nil {
		w.opts.Hub.Publish(telemetry.Event{Type: telemetry.EventItemFound, OperationID: w.opts.ID})
	}
	return item, err
}

func (w *Widget[T]) compareWindow(ctx context.Context, window []T, cmp Comparator[T]) (step[T], error) {
	var none step[T]
	n := len(window)
	if n == 0 {
		return w.emptyWindow(ctx)
	}
	if err := w.checkContiguous(ctx, window); err != nil {
		return none, err
	}

	first, err := cmp(ctx, window[0])
	if err != nil {
		return none, err
	}
	if first == 0 {
		return found(window[0]), nil
	}
	if n == 1 {
		return w.pageToward(ctx, first, window[0], window[0])
	}

	last, err := cmp(ctx, window[n-1])
	if err != nil {
		return none, err
	}
	if first > 0 && last < 0 {
		return none, impossible("first visible item sorts after the key (%d) and last sorts before it (%d)", first, last)
	}
	if last == 0 {
		return found(window[n-1]), nil
	}
	if (first < 0) == (last < 0) {
		return w.pageToward(ctx, first, window[0], window[n-1])
	}

	// first < 0 < last: the item can only be strictly inside the window
	lo, hi := 1, n-2
	for lo <= hi {
		mid := lo + (hi-lo)/2
		c, err := cmp(ctx, window[mid])
		if err != nil {
			return none, err
		}
		switch {
		case c == 0:
			return found(window[mid]), nil
		case c < 0:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return exhausted[T]("no item matches between the visible edges"), nil
}

// emptyWindow tells a collection still rendering from one with no items.
func (w *Widget[T]) emptyWindow(ctx context.Context) (step[T], error) {
	has, err := w.c.HasItems(ctx)
	if err != nil {
		return step[T]{}, err
	}
	if !has {
		return exhausted[T]("collection is empty"), nil
	}
	return step[T]{kind: stepRetry}, nil
}

// pageToward pages in the direction sign points to when the whole window
// lies on one side of the key.
func (w *Widget[T]) pageToward(ctx context.Context, sign int, first, last T) (step[T], error) {
	dir, anchor := Next, last
	if sign > 0 {
		dir, anchor = Previous, first
	}
	st, err := w.scrollState(ctx)
	if err != nil {
		return step[T]{}, err
	}
	if !st.has(dir) {
		end := "bottom"
		if dir == Previous {
			end = "top"
		}
		return exhausted[T]("reached the %s of the list", end), nil
	}
	return page(dir, anchor), nil
}

// FindItemSequentially scans forward page by page, starting at the current
// scroll position, and returns the first item pred accepts.
func (w *Widget[T]) FindItemSequentially(ctx context.Context, pred Predicate[T], d timeout.Deadline, message string) (T, error) {
	started := time.Now()
	return retry.Do(ctx, func(ctx context.Context) (T, bool, error) {
		return w.walk(ctx, "sequential", message, w.pageDeadline(d, started), func(ctx context.Context, window []T) (step[T], error) {
			var none step[T]
			for _, item := range window {
				ok, err := pred(ctx, item)
				if err != nil {
					return none, err
				}
				if ok {
					return found(item), nil
				}
			}
			if len(window) == 0 {
				return w.emptyWindow(ctx)
			}
			st, err := w.scrollState(ctx)
			if err != nil {
				return none, err
			}
			if !st.has(Next) {
				return exhausted[T]("scanned to the end of the list"), nil
			}
			return page(Next, window[len(window)-1]), nil
		})
	}, w.retryOptions(d, "findItemSequentially", message))
}

// IterateItems visits every item from the top of the list, once each, until
// visit returns false or the list ends.
func (w *Widget[T]) IterateItems(ctx context.Context, visit Visitor[T], d timeout.Deadline, message string) error {
	if err := w.ScrollToTop(ctx); err != nil {
		return err
	}
	started := time.Now()
	seen := make(map[string]struct{})
	_, err := retry.Do(ctx, func(ctx context.Context) (struct{}, bool, error) {
		_, ok, err := w.walk(ctx, "iterate", message, w.pageDeadline(d, started), func(ctx context.Context, window []T) (step[T], error) {
			var none step[T]
			for _, item := range window {
				key, err := w.c.Key(ctx, item)
				if err != nil {
					return none, err
				}
				if _, dup := seen[key]; dup {
					continue
				}
				more, err := visit(ctx, item)
				if err != nil {
					return none, err
				}
				seen[key] = struct{}{}
				if !more {
					return found(item), nil
				}
			}
			if len(window) == 0 {
				has, err := w.c.HasItems(ctx)
				if err != nil {
					return none, err
				}
				if has {
					return step[T]{kind: stepRetry}, nil
				}
				return found(none.item), nil
			}
			st, err := w.scrollState(ctx)
			if err != nil {
				return none, err
			}
			if !st.has(Next) {
				return found(none.item), nil
			}
			return page(Next, window[len(window)-1]), nil
		})
		return struct{}{}, ok, err
	}, w.retryOptions(d, "iterateItems", message))
	return err
}
