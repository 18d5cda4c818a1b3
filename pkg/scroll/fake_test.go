package scroll

import (
	"context"
	"fmt"
	"sync"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

const rowHeight = 10

type row struct {
	idx int
}

// fakeList is a virtualized list over a sorted backing slice. It renders
// the rows intersecting the viewport plus overscan rows that are not
// displayed.
type fakeList struct {
	mu       sync.Mutex
	labels   []string
	visible  int
	overscan int
	top      int
	// client overrides the viewport height, which is otherwise a whole
	// number of rows.
	client int

	emptyPolls  int  // Items returns nothing this many times
	staleAt     int  // the nth Label call fails with a stale element
	alwaysStale bool // every Label call fails
	skipRow     int  // omit this row from renders when > 0
	labelCalls  int
}

func newFakeList(labels []string, visible int) *fakeList {
	return &fakeList{labels: labels, visible: visible, overscan: 1}
}

func (f *fakeList) clientHeight() int {
	if f.client > 0 {
		return f.client
	}
	return f.visible * rowHeight
}

func (f *fakeList) bounds() (start, end int) {
	start = f.top / rowHeight
	end = (f.top + f.clientHeight() + rowHeight - 1) / rowHeight
	if end > len(f.labels) {
		end = len(f.labels)
	}
	return start, end
}

func (f *fakeList) Items(ctx context.Context) ([]row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emptyPolls > 0 {
		f.emptyPolls--
		return nil, nil
	}
	start, end := f.bounds()
	end += f.overscan
	if end > len(f.labels) {
		end = len(f.labels)
	}
	var rows []row
	for i := start; i < end; i++ {
		if f.skipRow > 0 && i == f.skipRow {
			continue
		}
		rows = append(rows, row{idx: i})
	}
	return rows, nil
}

func (f *fakeList) Displayed(ctx context.Context, r row) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, end := f.bounds()
	return r.idx < end, nil
}

func (f *fakeList) ActiveItem(ctx context.Context) (row, error) {
	return row{idx: 0}, nil
}

func (f *fakeList) HasItems(ctx context.Context) (bool, error) {
	return len(f.labels) > 0, nil
}

func (f *fakeList) Bounds(ctx context.Context, r row) (int, int, error) {
	return r.idx * rowHeight, rowHeight, nil
}

func (f *fakeList) Key(ctx context.Context, r row) (string, error) {
	return fmt.Sprintf("row-%d", r.idx), nil
}

func (f *fakeList) Index(ctx context.Context, r row) (int, error) {
	return r.idx, nil
}

// Label reads a row the way a page object reads a DOM attribute.
func (f *fakeList) Label(r row) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labelCalls++
	if f.alwaysStale || f.labelCalls == f.staleAt {
		return "", browser.NewDriverError(browser.CodeStaleElement, "row re-rendered")
	}
	return f.labels[r.idx], nil
}

func (f *fakeList) ScrollProxy() ScrollProxy { return fakeProxy{f} }

type fakeProxy struct{ f *fakeList }

func (p fakeProxy) ScrollTop(ctx context.Context) (int, error) {
	p.f.mu.Lock()
	defer p.f.mu.Unlock()
	return p.f.top, nil
}

func (p fakeProxy) ScrollHeight(ctx context.Context) (int, error) {
	return len(p.f.labels) * rowHeight, nil
}

func (p fakeProxy) ClientHeight(ctx context.Context) (int, error) {
	p.f.mu.Lock()
	defer p.f.mu.Unlock()
	return p.f.clientHeight(), nil
}

func (p fakeProxy) SetScrollTop(ctx context.Context, top int) error {
	p.f.mu.Lock()
	defer p.f.mu.Unlock()
	limit := len(p.f.labels)*rowHeight - p.f.clientHeight()
	if top > limit {
		top = limit
	}
	if top < 0 {
		top = 0
	}
	p.f.top = top
	return nil
}

// seek orders rows against key in the comparator's sign convention.
func (f *fakeList) seek(key string) Comparator[row] {
	return func(ctx context.Context, r row) (int, error) {
		label, err := f.Label(r)
		if err != nil {
			return 0, err
		}
		switch {
		case label < key:
			return -1, nil
		case label > key:
			return 1, nil
		}
		return 0, nil
	}
}

func sortedLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("item-%03d", i*2)
	}
	return labels
}
