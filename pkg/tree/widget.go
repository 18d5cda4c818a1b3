// Package tree finds nodes of virtualized tree widgets by path, expanding
// folders on the way down.
package tree

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/odvcencio/ideprobe/pkg/browser"
	ierrors "github.com/odvcencio/ideprobe/pkg/errors"
	"github.com/odvcencio/ideprobe/pkg/observability"
	"github.com/odvcencio/ideprobe/pkg/retry"
	"github.com/odvcencio/ideprobe/pkg/scroll"
	"github.com/odvcencio/ideprobe/pkg/telemetry"
	"github.com/odvcencio/ideprobe/pkg/timeout"
)

// DefaultMaxSegmentRetries bounds how often one segment is searched again
// after a folder was expanded during the same path search.
const DefaultMaxSegmentRetries = 5

// DefaultSegmentRetryInterval is the pause before the first segment retry.
// Each further retry of the same segment waits one interval longer.
const DefaultSegmentRetryInterval = 50 * time.Millisecond

// Tree is a virtualized list whose rows are the visible nodes of a tree in
// pre-order.
type Tree[T any] interface {
	scroll.Collection[T]

	// Segments returns the path from the root to node, node included.
	Segments(ctx context.Context, node T) ([]Segment, error)
	// Depth is the rendered nesting level, 1 for top-level nodes.
	Depth(ctx context.Context, node T) (int, error)
	Expandable(ctx context.Context, node T) (bool, error)
	Expanded(ctx context.Context, node T) (bool, error)
	Expand(ctx context.Context, node T) error
}

// Options configures a Widget.
type Options struct {
	scroll.Options

	// Order is the sibling order the tree renders in. Defaults to
	// NaturalOrder.
	Order Order
	// ReadyTimeout bounds each readiness wait.
	ReadyTimeout timeout.Deadline
	// ExpandTimeout bounds the wait for a folder to report expanded.
	ExpandTimeout timeout.Deadline
	// MaxSegmentRetries caps re-searches of one segment. Zero means the
	// default.
	MaxSegmentRetries int
	// SegmentRetryInterval is the base pause between segment retries. The
	// larger of it and Interval is used. Zero means the default.
	SegmentRetryInterval time.Duration
}

// Widget searches a Tree by path.
type Widget[T any] struct {
	tree   Tree[T]
	list   *scroll.Widget[T]
	opts   Options
	logger *observability.Logger
	ready  func(ctx context.Context) (bool, error)

	// lock admits one path search at a time.
	lock *semaphore.Weighted
}

// New wraps t.
func New[T any](t Tree[T], opts Options) *Widget[T] {
	if opts.ID == "" {
		opts.ID = "tree"
	}
	if opts.Order == nil {
		opts.Order = NaturalOrder()
	}
	if opts.MaxSegmentRetries <= 0 {
		opts.MaxSegmentRetries = DefaultMaxSegmentRetries
	}
	if opts.SegmentRetryInterval <= 0 {
		opts.SegmentRetryInterval = DefaultSegmentRetryInterval
	}
	if opts.IsStale == nil {
		opts.IsStale = browser.IsStale
	}
	isStale := opts.IsStale
	listOpts := opts.Options
	listOpts.IsStale = func(err error) bool {
		return errors.Is(err, errDepthMismatch) || isStale(err)
	}
	return &Widget[T]{
		tree:   t,
		list:   scroll.New[T](t, listOpts),
		opts:   opts,
		logger: observability.OrNop(opts.Logger),
		lock:   semaphore.NewWeighted(1),
	}
}

// WithReadiness installs a probe that must report true before each segment
// is searched, such as "no busy indicator is showing".
func (w *Widget[T]) WithReadiness(probe func(ctx context.Context) (bool, error)) *Widget[T] {
	w.ready = probe
	return w
}

// List exposes the underlying list search.
func (w *Widget[T]) List() *scroll.Widget[T] { return w.list }

// Tree returns the wrapped tree.
func (w *Widget[T]) Tree() Tree[T] { return w.tree }

// FindNode binary searches the visible rows with cmp, which must be
// consistent with the rendered pre-order.
func (w *Widget[T]) FindNode(ctx context.Context, cmp scroll.Comparator[T], d timeout.Deadline) (T, error) {
	node, err := w.list.FindItemWithComparator(ctx, cmp, d, "node matching comparator")
	var miss *scroll.ItemNotFoundError
	if errors.As(err, &miss) {
		var zero T
		reason := miss.Reason
		if miss.Message != "" {
			reason += ": " + miss.Message
		}
		return zero, &ItemNotFoundError{Reason: reason, Err: err}
	}
	return node, err
}

// FindFile finds a file below the folders named by the leading labels.
func (w *Widget[T]) FindFile(ctx context.Context, d timeout.Deadline, labels ...string) (T, error) {
	return w.FindNodeByPath(ctx, PathOf(File, labels...), d)
}

// FindFolder finds a folder by its path.
func (w *Widget[T]) FindFolder(ctx context.Context, d timeout.Deadline, labels ...string) (T, error) {
	return w.FindNodeByPath(ctx, PathOf(Folder, labels...), d)
}

// FindByLabels finds a node of either kind by path.
func (w *Widget[T]) FindByLabels(ctx context.Context, d timeout.Deadline, labels ...string) (T, error) {
	return w.FindNodeByPath(ctx, PathOf(Node, labels...), d)
}

type searchState[T any] struct {
	path    []Segment
	index   int
	started time.Time

	// seenExpandedFolder is set once this search expanded a folder, since
	// the rows below it may still be rendering.
	seenExpandedFolder bool
	segmentRetries     int
}

// FindNodeByPath walks path from the root: each segment is searched among
// the children of the previous one, which is expanded first. Only one
// search runs on a widget at a time.
func (w *Widget[T]) FindNodeByPath(ctx context.Context, path []Segment, d timeout.Deadline) (T, error) {
	var zero T
	if len(path) == 0 {
		return zero, ierrors.New(ierrors.ErrCodeInvalidInput, "empty tree path")
	}
	if !w.lock.TryAcquire(1) {
		return zero, ierrors.Wrap(ErrSearchInProgress, ierrors.ErrCodeContractViolation,
			fmt.Sprintf("%s: cannot search %s while another search runs", w.opts.ID, strings.Join(Labels(path), "/")))
	}
	defer w.lock.Release(1)

	searchID := ulid.Make().String()
	ctx, span := observability.StartSpan(ctx, "tree.FindNodeByPath",
		trace.WithAttributes(
			observability.AttrOperationID.String(w.opts.ID),
			observability.AttrRunID.String(searchID),
			observability.AttrTreePath.String(strings.Join(Labels(path), "/")),
			observability.AttrDeadline.String(d.String()),
		))
	defer span.End()
	logger := w.logger.WithContext(ctx).WithOperation(w.opts.ID, searchID)

	st := &searchState[T]{path: path, started: time.Now()}
	node, err := w.search(ctx, logger, st, d)

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
	observability.PathSearches.WithLabelValues(outcome).Inc()
	observability.SetAttributes(ctx, observability.AttrOutcome.String(outcome))
	observability.RecordError(ctx, err)
	if err != nil {
		logger.PathSearchFailed(Labels(path), err)
		w.opts.Hub.Publish(telemetry.Event{
			Type:        telemetry.EventPathSearchFailed,
			OperationID: w.opts.ID,
			RunID:       searchID,
			Data:        map[string]any{"path": Labels(path), "outcome": outcome, "error": err.Error()},
		})
		return zero, err
	}
	return node, nil
}

func (w *Widget[T]) search(ctx context.Context, logger *observability.Logger, st *searchState[T], d timeout.Deadline) (T, error) {
	var zero, node T
	for st.index < len(st.path) {
		remaining := d.Remaining(st.started)
		if err := w.waitReady(ctx, remaining); err != nil {
			return zero, w.segmentFailure(st, d, err)
		}

		var err error
		node, err = w.findSegment(ctx, st, remaining)
		if err != nil {
			if scroll.IsItemNotFound(err) && w.canRetrySegment(st, d) {
				st.segmentRetries++
				observability.SegmentRetries.Inc()
				logger.SegmentRetried(Labels(st.path), st.index, st.segmentRetries)
				w.opts.Hub.Publish(telemetry.Event{
					Type:        telemetry.EventSegmentRetried,
					OperationID: w.opts.ID,
					Data:        map[string]any{"path": Labels(st.path), "segment": st.index, "attempt": st.segmentRetries},
				})
				if err := sleep(ctx, w.retryPause(st, d)); err != nil {
					return zero, err
				}
				continue
			}
			return zero, w.segmentFailure(st, d, err)
		}

		if st.index < len(st.path)-1 {
			if err := w.open(ctx, logger, st, node, d.Remaining(st.started)); err != nil {
				return zero, err
			}
		}
		st.index++
		st.segmentRetries = 0
	}
	return node, nil
}

func (w *Widget[T]) canRetrySegment(st *searchState[T], d timeout.Deadline) bool {
	if !st.seenExpandedFolder || d.IsOnce() || st.segmentRetries >= w.opts.MaxSegmentRetries {
		return false
	}
	return !d.IsBounded() || time.Since(st.started) < d.Duration()
}

// retryPause grows with each retry of the current segment so lazily loaded
// children get real time to render. It never sleeps past the deadline.
func (w *Widget[T]) retryPause(st *searchState[T], d timeout.Deadline) time.Duration {
	base := max(w.opts.SegmentRetryInterval, w.opts.Interval)
	pause := base * time.Duration(st.segmentRetries)
	if d.IsBounded() {
		pause = min(pause, d.Duration()-time.Since(st.started))
	}
	return pause
}

// segmentFailure converts a failed segment into the path-level error. A
// single-attempt search reports every miss as not found.
func (w *Widget[T]) segmentFailure(st *searchState[T], d timeout.Deadline, err error) error {
	seg := st.path[st.index]
	switch {
	case scroll.IsItemNotFound(err):
		return notFound(st.path, err, "no %s %q at depth %d", seg.Kind, seg.Label, st.index+1)
	case timeout.IsTimeout(err) && d.IsOnce():
		return notFound(st.path, err, "%s %q was not rendered", seg.Kind, seg.Label)
	case timeout.IsTimeout(err):
		return timeout.AppendMessage(err, fmt.Sprintf("while looking for %q in %s", seg.Label, strings.Join(Labels(st.path), "/")))
	}
	return err
}

// findSegment searches the current target among the rendered rows. A Node
// segment in a tree that groups by kind is tried as a folder, then as a
// file.
func (w *Widget[T]) findSegment(ctx context.Context, st *searchState[T], d timeout.Deadline) (T, error) {
	target := make([]Segment, st.index+1)
	copy(target, st.path[:st.index+1])
	last := target[st.index]
	kinds := []Kind{last.Kind}
	if st.index < len(st.path)-1 && last.Kind == Node {
		kinds = []Kind{Folder}
	} else if last.Kind == Node && w.opts.Order.KindSensitive() {
		kinds = []Kind{Folder, File}
	}

	var zero T
	var err error
	started := time.Now()
	for _, kind := range kinds {
		target[st.index].Kind = kind
		var node T
		node, err = w.list.FindItemWithComparator(ctx, w.pathComparator(append([]Segment(nil), target...)), d.Remaining(started),
			fmt.Sprintf("%s %q under %q", kind, last.Label, strings.Join(Labels(target[:st.index]), "/")))
		if err == nil {
			return node, nil
		}
		if !scroll.IsItemNotFound(err) {
			return zero, err
		}
	}
	return zero, err
}

// pathComparator orders rows against target in tree pre-order.
func (w *Widget[T]) pathComparator(target []Segment) scroll.Comparator[T] {
	return func(ctx context.Context, node T) (int, error) {
		segs, err := w.tree.Segments(ctx, node)
		if err != nil {
			return 0, err
		}
		c := ComparePaths(w.opts.Order, segs, target)
		if c != 0 {
			return c, nil
		}
		depth, err := w.tree.Depth(ctx, node)
		if err != nil {
			return 0, err
		}
		if depth != len(target) {
			return 0, fmt.Errorf("%w: %q renders at depth %d, want %d", errDepthMismatch,
				strings.Join(Labels(segs), "/"), depth, len(target))
		}
		return 0, nil
	}
}

// open expands node so that its children render.
func (w *Widget[T]) open(ctx context.Context, logger *observability.Logger, st *searchState[T], node T, d timeout.Deadline) error {
	seg := st.path[st.index]
	expandable, err := w.tree.Expandable(ctx, node)
	if err != nil {
		return err
	}
	if !expandable {
		return notFound(st.path, nil, "%q is not expandable", seg.Label)
	}
	expanded, err := w.tree.Expanded(ctx, node)
	if err != nil {
		return err
	}
	if expanded {
		return nil
	}
	if err := w.tree.Expand(ctx, node); err != nil {
		return err
	}
	err = retry.Until(ctx, func(ctx context.Context) (bool, error) {
		return w.tree.Expanded(ctx, node)
	}, retry.Options{
		Timeout:  d.Min(w.opts.ExpandTimeout),
		ID:       w.opts.ID + ".expand",
		Message:  fmt.Sprintf("%q did not expand", seg.Label),
		Interval: w.opts.Interval,
		Logger:   w.opts.Logger,
	})
	if err != nil {
		return w.segmentFailure(st, d, err)
	}

	st.seenExpandedFolder = true
	expandedPath := Labels(st.path[:st.index+1])
	observability.NodeExpansions.Inc()
	logger.NodeExpanded(expandedPath)
	w.opts.Hub.Publish(telemetry.Event{
		Type:        telemetry.EventNodeExpanded,
		OperationID: w.opts.ID,
		Data:        map[string]any{"path": expandedPath},
	})
	return nil
}

func (w *Widget[T]) waitReady(ctx context.Context, d timeout.Deadline) error {
	if w.ready == nil {
		return nil
	}
	return retry.Until(ctx, w.ready, retry.Options{
		Timeout:  d.Min(w.opts.ReadyTimeout),
		ID:       w.opts.ID + ".ready",
		Message:  "tree never became ready",
		Interval: w.opts.Interval,
		Logger:   w.opts.Logger,
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
