package tree

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/odvcencio/ideprobe/pkg/errors"
	"github.com/odvcencio/ideprobe/pkg/scroll"
	"github.com/odvcencio/ideprobe/pkg/telemetry"
	"github.com/odvcencio/ideprobe/pkg/timeout"
)

// sampleTree is root -> [a -> [b, c], d].
func sampleTree(visible int) (*fakeTree, map[string]*fnode) {
	b, c, d := file("b"), file("c"), file("d")
	a := folder("a", b, c)
	return newFakeTree(visible, a, d), map[string]*fnode{"a": a, "b": b, "c": c, "d": d}
}

func TestFindNodeByPath_ExpandsAndFinds(t *testing.T) {
	ft, nodes := sampleTree(2)
	w := New[*fnode](ft, Options{})

	got, err := w.FindByLabels(context.Background(), timeout.After(2*time.Second), "a", "b")
	require.NoError(t, err)
	assert.Same(t, nodes["b"], got)
	assert.True(t, ft.expanded[nodes["a"]])
	assert.Equal(t, 1, ft.expands)

	got, err = w.FindByLabels(context.Background(), timeout.After(2*time.Second), "d")
	require.NoError(t, err)
	assert.Same(t, nodes["d"], got)
	assert.Equal(t, 1, ft.expands, "already expanded folders are left alone")
}

func TestFindNodeByPath_MissingChildIsTreeItemNotFound(t *testing.T) {
	ft, _ := sampleTree(2)
	hub := telemetry.NewHubWithBuffer(1024)
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	w := New[*fnode](ft, Options{Options: scroll.Options{Hub: hub}})

	_, err := w.FindByLabels(context.Background(), timeout.After(2*time.Second), "a", "x")
	require.Error(t, err)

	var nf *ItemNotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, []string{"a", "x"}, nf.Path)
	assert.True(t, scroll.IsItemNotFound(err), "the list-level cause is kept")
	assert.True(t, ierrors.IsCode(err, ierrors.ErrCodeTreeItemNotFound))

	retried := 0
	for {
		select {
		case ev := <-events:
			if ev.Type == telemetry.EventSegmentRetried {
				retried++
			}
			continue
		default:
		}
		break
	}
	assert.Equal(t, DefaultMaxSegmentRetries, retried)
}

func TestFindNodeByPath_OnceFailsWithoutRetrying(t *testing.T) {
	ft, _ := sampleTree(2)
	w := New[*fnode](ft, Options{})

	start := time.Now()
	_, err := w.FindByLabels(context.Background(), timeout.Once(), "a", "x")
	require.Error(t, err)
	assert.True(t, IsItemNotFound(err))
	assert.False(t, timeout.IsTimeout(err))
	assert.Less(t, time.Since(start), time.Second)

	var nf *ItemNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"a", "x"}, nf.Path)
}

func TestFindNodeByPath_FileIsNotAFolder(t *testing.T) {
	ft, _ := sampleTree(2)
	w := New[*fnode](ft, Options{})

	_, err := w.FindByLabels(context.Background(), timeout.After(time.Second), "d", "e")
	var nf *ItemNotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, []string{"d", "e"}, nf.Path)
	assert.Contains(t, nf.Reason, `folder "d"`)
	assert.Zero(t, ft.expands)
}

func TestFindNodeByPath_LazyChildrenAreRetried(t *testing.T) {
	ft, nodes := sampleTree(2)
	ft.loadPolls = 3
	w := New[*fnode](ft, Options{Options: scroll.Options{Interval: time.Millisecond}})

	got, err := w.FindByLabels(context.Background(), timeout.After(2*time.Second), "a", "c")
	require.NoError(t, err)
	assert.Same(t, nodes["c"], got)
}

func TestFindNodeByPath_SlowChildrenWithoutReadiness(t *testing.T) {
	ft, nodes := sampleTree(2)
	ft.loadDelay = 200 * time.Millisecond
	w := New[*fnode](ft, Options{})

	start := time.Now()
	got, err := w.FindByLabels(context.Background(), timeout.After(5*time.Second), "a", "c")
	require.NoError(t, err)
	assert.Same(t, nodes["c"], got)
	assert.GreaterOrEqual(t, time.Since(start), ft.loadDelay)
}

func TestRetryPause_GrowsAndStopsAtDeadline(t *testing.T) {
	ft, _ := sampleTree(2)
	w := New[*fnode](ft, Options{})
	st := &searchState[*fnode]{started: time.Now(), segmentRetries: 1}

	assert.Equal(t, DefaultSegmentRetryInterval, w.retryPause(st, timeout.Unbounded))
	st.segmentRetries = 3
	assert.Equal(t, 3*DefaultSegmentRetryInterval, w.retryPause(st, timeout.Unbounded))
	assert.LessOrEqual(t, w.retryPause(st, timeout.After(20*time.Millisecond)), 20*time.Millisecond)

	slow := New[*fnode](ft, Options{Options: scroll.Options{Interval: time.Second}})
	st.segmentRetries = 1
	assert.Equal(t, time.Second, slow.retryPause(st, timeout.Unbounded))
}

func TestFindNodeByPath_ReadinessGatesSegments(t *testing.T) {
	ft, nodes := sampleTree(2)
	ft.loadPolls = 3
	hub := telemetry.NewHubWithBuffer(1024)
	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()
	w := New[*fnode](ft, Options{Options: scroll.Options{Hub: hub}}).WithReadiness(ft.ready)

	got, err := w.FindByLabels(context.Background(), timeout.After(2*time.Second), "a", "b")
	require.NoError(t, err)
	assert.Same(t, nodes["b"], got)

	for {
		select {
		case ev := <-events:
			assert.NotEqual(t, telemetry.EventSegmentRetried, ev.Type, "readiness should make retries unnecessary")
			continue
		default:
		}
		break
	}
}

func TestFindNodeByPath_DepthMismatchIsRefetched(t *testing.T) {
	ft, nodes := sampleTree(2)
	ft.depthLies = 2
	w := New[*fnode](ft, Options{})

	got, err := w.FindByLabels(context.Background(), timeout.After(2*time.Second), "a")
	require.NoError(t, err)
	assert.Same(t, nodes["a"], got)
}

func TestFindNodeByPath_SecondSearchIsRejected(t *testing.T) {
	ft, nodes := sampleTree(2)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once bool
	w := New[*fnode](ft, Options{}).WithReadiness(func(ctx context.Context) (bool, error) {
		if !once {
			once = true
			close(entered)
			<-release
		}
		return true, nil
	})

	type result struct {
		node *fnode
		err  error
	}
	done := make(chan result, 1)
	go func() {
		n, err := w.FindByLabels(context.Background(), timeout.After(5*time.Second), "a", "b")
		done <- result{n, err}
	}()
	<-entered

	_, err := w.FindByLabels(context.Background(), timeout.After(5*time.Second), "d")
	require.Error(t, err)
	assert.True(t, ierrors.IsContractViolation(err))
	assert.ErrorIs(t, err, ErrSearchInProgress)

	close(release)
	r := <-done
	require.NoError(t, r.err)
	assert.Same(t, nodes["b"], r.node)

	_, err = w.FindByLabels(context.Background(), timeout.After(time.Second), "d")
	assert.NoError(t, err, "the lock is released after the first search")
}

func TestFindNodeByPath_EmptyPath(t *testing.T) {
	ft, _ := sampleTree(2)
	w := New[*fnode](ft, Options{})
	_, err := w.FindNodeByPath(context.Background(), nil, timeout.Once())
	assert.True(t, ierrors.IsCode(err, ierrors.ErrCodeInvalidInput))
}

func TestFindFileAndFolder_FoldersFirst(t *testing.T) {
	// folders-first order: b/, z/, a, b
	bDir := folder("b", file("inner"))
	zDir := folder("z")
	aFile, bFile := file("a"), file("b")
	ft := newFakeTree(2, bDir, zDir, aFile, bFile)
	w := New[*fnode](ft, Options{Order: FoldersFirst()})
	ctx := context.Background()

	got, err := w.FindFile(ctx, timeout.After(time.Second), "b")
	require.NoError(t, err)
	assert.Same(t, bFile, got)

	got, err = w.FindFolder(ctx, timeout.After(time.Second), "b")
	require.NoError(t, err)
	assert.Same(t, bDir, got)

	got, err = w.FindByLabels(ctx, timeout.After(time.Second), "a")
	require.NoError(t, err)
	assert.Same(t, aFile, got, "an untyped leaf falls back to a file")

	got, err = w.FindFile(ctx, timeout.After(time.Second), "b", "inner")
	require.NoError(t, err)
	assert.Equal(t, "inner", got.label)
}

func TestFindNode_WrapsListMiss(t *testing.T) {
	ft, _ := sampleTree(2)
	w := New[*fnode](ft, Options{})

	_, err := w.FindNode(context.Background(), func(ctx context.Context, n *fnode) (int, error) {
		return ComparePaths(NaturalOrder(), n.path(), PathOf(Node, "zz")), nil
	}, timeout.After(time.Second))
	require.True(t, IsItemNotFound(err))
	assert.True(t, scroll.IsItemNotFound(err))
	assert.NotContains(t, err.Error(), ": :")
	assert.NotContains(t, err.Error(), "scroll item not found")
	assert.Contains(t, err.Error(), "tree item not found: ")
	assert.Contains(t, err.Error(), "node matching comparator")
}

func TestItemNotFoundError_Rendering(t *testing.T) {
	withPath := &ItemNotFoundError{Path: []string{"a", "x"}, Reason: "no node \"x\" at depth 2"}
	assert.Equal(t, `tree item not found: a/x: no node "x" at depth 2`, withPath.Error())

	bare := &ItemNotFoundError{Reason: "gone"}
	assert.Equal(t, "tree item not found: gone", bare.Error())
}
