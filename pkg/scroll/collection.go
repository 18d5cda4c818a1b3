// Package scroll searches virtualized lists whose DOM only ever holds a
// window of the logical items.
package scroll

import "context"

// ScrollProxy exposes the vertical scrollbar of a collection. Values are in
// pixels of the scroll content.
type ScrollProxy interface {
	ScrollTop(ctx context.Context) (int, error)
	ScrollHeight(ctx context.Context) (int, error)
	ClientHeight(ctx context.Context) (int, error)
	SetScrollTop(ctx context.Context, top int) error
}

// Collection is a UI list that renders a window of its items.
type Collection[T any] interface {
	// Items returns the rendered items in display order, including overscan
	// rows that are not visible.
	Items(ctx context.Context) ([]T, error)
	// Displayed reports whether a rendered item is actually shown.
	Displayed(ctx context.Context, item T) (bool, error)
	ActiveItem(ctx context.Context) (T, error)
	// HasItems reports whether the logical collection is non-empty, even
	// when nothing is rendered yet.
	HasItems(ctx context.Context) (bool, error)
	// Bounds returns the item's top offset and height in scroll content
	// coordinates, the space ScrollTop is measured in.
	Bounds(ctx context.Context, item T) (top, height int, err error)
	// Key identifies an item across re-renders.
	Key(ctx context.Context, item T) (string, error)
	ScrollProxy() ScrollProxy
}

// Indexed is implemented by collections that know each rendered item's
// position in the logical list. A negative index means unknown. When
// available, every window is checked to be a contiguous slice.
type Indexed[T any] interface {
	Index(ctx context.Context, item T) (int, error)
}

// Comparator orders an item relative to the sought key: negative when the
// item comes before it, positive when after, zero on a match.
type Comparator[T any] func(ctx context.Context, item T) (int, error)

// Predicate matches items during a sequential scan.
type Predicate[T any] func(ctx context.Context, item T) (bool, error)

// Visitor is called for each item during iteration. Returning false stops.
type Visitor[T any] func(ctx context.Context, item T) (bool, error)
