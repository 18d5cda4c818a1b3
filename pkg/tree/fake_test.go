package tree

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/odvcencio/ideprobe/pkg/scroll"
)

const rowHeight = 10

type fnode struct {
	label    string
	kind     Kind
	parent   *fnode
	children []*fnode
}

func folder(label string, children ...*fnode) *fnode {
	n := &fnode{label: label, kind: Folder, children: children}
	for _, c := range children {
		c.parent = n
	}
	return n
}

func file(label string) *fnode { return &fnode{label: label, kind: File} }

func (n *fnode) path() []Segment {
	var segs []Segment
	for p := n; p != nil; p = p.parent {
		segs = append([]Segment{{Label: p.label, Kind: p.kind}}, segs...)
	}
	return segs
}

// fakeTree renders the expanded part of a tree as a virtualized list.
// Children of a freshly expanded folder appear after loadPolls renders and
// once loadDelay has passed.
type fakeTree struct {
	mu       sync.Mutex
	roots    []*fnode
	expanded map[*fnode]bool
	pending  map[*fnode]int
	loadsAt  map[*fnode]time.Time
	visible  int
	top      int

	loadPolls int
	loadDelay time.Duration
	depthLies int // Depth reports 0 this many times
	expands   int
}

func newFakeTree(visible int, roots ...*fnode) *fakeTree {
	return &fakeTree{
		roots:    roots,
		expanded: make(map[*fnode]bool),
		pending:  make(map[*fnode]int),
		loadsAt:  make(map[*fnode]time.Time),
		visible:  visible,
	}
}

func (f *fakeTree) flatten() []*fnode {
	var out []*fnode
	var visit func(nodes []*fnode)
	visit = func(nodes []*fnode) {
		for _, n := range nodes {
			out = append(out, n)
			if f.expanded[n] && f.pending[n] == 0 && !time.Now().Before(f.loadsAt[n]) {
				visit(n.children)
			}
		}
	}
	visit(f.roots)
	return out
}

func (f *fakeTree) window() (rows []*fnode, end int) {
	rows = f.flatten()
	start := f.top / rowHeight
	end = start + f.visible
	if end > len(rows) {
		end = len(rows)
	}
	if start > end {
		start = end
	}
	return rows[start:end], end
}

func (f *fakeTree) Items(ctx context.Context) ([]*fnode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n, polls := range f.pending {
		if polls > 0 {
			f.pending[n] = polls - 1
		}
	}
	rows, _ := f.window()
	return rows, nil
}

func (f *fakeTree) Displayed(ctx context.Context, n *fnode) (bool, error) { return true, nil }

func (f *fakeTree) ActiveItem(ctx context.Context) (*fnode, error) { return f.roots[0], nil }

func (f *fakeTree) HasItems(ctx context.Context) (bool, error) { return len(f.roots) > 0, nil }

func (f *fakeTree) indexOf(n *fnode) int {
	for i, row := range f.flatten() {
		if row == n {
			return i
		}
	}
	return -1
}

func (f *fakeTree) Bounds(ctx context.Context, n *fnode) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexOf(n) * rowHeight, rowHeight, nil
}

func (f *fakeTree) Key(ctx context.Context, n *fnode) (string, error) {
	return strings.Join(Labels(n.path()), "/"), nil
}

func (f *fakeTree) ScrollProxy() scroll.ScrollProxy { return treeProxy{f} }

func (f *fakeTree) Segments(ctx context.Context, n *fnode) ([]Segment, error) {
	return n.path(), nil
}

func (f *fakeTree) Depth(ctx context.Context, n *fnode) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.depthLies > 0 {
		f.depthLies--
		return 0, nil
	}
	return len(n.path()), nil
}

func (f *fakeTree) Expandable(ctx context.Context, n *fnode) (bool, error) {
	return n.kind == Folder, nil
}

func (f *fakeTree) Expanded(ctx context.Context, n *fnode) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expanded[n], nil
}

func (f *fakeTree) Expand(ctx context.Context, n *fnode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expands++
	f.expanded[n] = true
	f.pending[n] = f.loadPolls
	f.loadsAt[n] = time.Now().Add(f.loadDelay)
	return nil
}

// ready reports false while any folder is still loading.
func (f *fakeTree) ready(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for n, polls := range f.pending {
		if polls > 0 {
			f.pending[n] = polls - 1
			return false, nil
		}
	}
	return true, nil
}

type treeProxy struct{ f *fakeTree }

func (p treeProxy) ScrollTop(ctx context.Context) (int, error) {
	p.f.mu.Lock()
	defer p.f.mu.Unlock()
	return p.f.top, nil
}

func (p treeProxy) ScrollHeight(ctx context.Context) (int, error) {
	p.f.mu.Lock()
	defer p.f.mu.Unlock()
	return len(p.f.flatten()) * rowHeight, nil
}

func (p treeProxy) ClientHeight(ctx context.Context) (int, error) {
	return p.f.visible * rowHeight, nil
}

func (p treeProxy) SetScrollTop(ctx context.Context, top int) error {
	p.f.mu.Lock()
	defer p.f.mu.Unlock()
	limit := len(p.f.flatten())*rowHeight - p.f.visible*rowHeight
	if top > limit {
		top = limit
	}
	if top < 0 {
		top = 0
	}
	p.f.top = top
	return nil
}
