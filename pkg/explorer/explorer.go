// Package explorer is a page object for an IDE file explorer: a
// virtualized tree of files and folders driven through a browser.Driver.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/odvcencio/ideprobe/pkg/browser"
	"github.com/odvcencio/ideprobe/pkg/locators"
	"github.com/odvcencio/ideprobe/pkg/scroll"
	"github.com/odvcencio/ideprobe/pkg/timeout"
	"github.com/odvcencio/ideprobe/pkg/tree"
)

// ErrNoSelection is returned by ActiveItem when no row is selected.
var ErrNoSelection = errors.New("no row is selected")

// Options configures an Explorer.
type Options struct {
	Tree tree.Options
	// Find is the default deadline of FindFile, FindFolder and FindByPath
	// when the caller passes the zero Deadline.
	Find timeout.Deadline
}

//go:generate mockgen -package=explorer -destination=mock_browser_test.go github.com/odvcencio/ideprobe/pkg/browser Driver,Element

// Explorer implements tree.Tree over rendered rows.
type Explorer struct {
	d      browser.Driver
	loc    locators.Explorer
	opts   Options
	widget *tree.Widget[browser.Element]
}

var _ tree.Tree[browser.Element] = (*Explorer)(nil)
var _ scroll.Indexed[browser.Element] = (*Explorer)(nil)

// New builds an explorer over d. Sibling order defaults to folders first.
func New(d browser.Driver, loc locators.Explorer, opts Options) *Explorer {
	if opts.Tree.Order == nil {
		opts.Tree.Order = tree.FoldersFirst()
	}
	if opts.Tree.ID == "" {
		opts.Tree.ID = "explorer"
	}
	e := &Explorer{d: d, loc: loc, opts: opts}
	e.widget = tree.New[browser.Element](e, opts.Tree).WithReadiness(e.Idle)
	return e
}

// Widget exposes the tree search.
func (e *Explorer) Widget() *tree.Widget[browser.Element] { return e.widget }

func (e *Explorer) deadline(d timeout.Deadline) timeout.Deadline {
	return d.Or(e.opts.Find)
}

func (e *Explorer) split(path string) []string {
	sep := e.loc.Attributes.Separator
	var labels []string
	for _, part := range strings.Split(strings.Trim(path, sep), sep) {
		if part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}

// FindFile finds a file by its workspace-relative path, expanding the
// folders above it.
func (e *Explorer) FindFile(ctx context.Context, path string, d timeout.Deadline) (browser.Element, error) {
	return e.widget.FindFile(ctx, e.deadline(d), e.split(path)...)
}

// FindFolder finds a folder by its workspace-relative path.
func (e *Explorer) FindFolder(ctx context.Context, path string, d timeout.Deadline) (browser.Element, error) {
	return e.widget.FindFolder(ctx, e.deadline(d), e.split(path)...)
}

// FindByPath finds a file or folder by path.
func (e *Explorer) FindByPath(ctx context.Context, path string, d timeout.Deadline) (browser.Element, error) {
	return e.widget.FindByLabels(ctx, e.deadline(d), e.split(path)...)
}

// Open finds path and selects its row.
func (e *Explorer) Open(ctx context.Context, path string, d timeout.Deadline) error {
	row, err := e.FindByPath(ctx, path, d)
	if err != nil {
		return err
	}
	return e.d.Perform(ctx, browser.ClickOn(row))
}

// VisibleLabels returns the labels of the displayed rows, top to bottom.
func (e *Explorer) VisibleLabels(ctx context.Context, d timeout.Deadline) ([]string, error) {
	rows, err := e.widget.List().VisibleItems(ctx, e.deadline(d))
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(rows))
	for _, row := range rows {
		label, err := row.FindElement(ctx, e.loc.Label)
		if err != nil {
			return nil, err
		}
		text, err := label.Text(ctx)
		if err != nil {
			return nil, err
		}
		labels = append(labels, text)
	}
	return labels, nil
}

// Idle reports whether no busy indicator is showing.
func (e *Explorer) Idle(ctx context.Context) (bool, error) {
	busy, err := e.d.FindElements(ctx, e.loc.Busy)
	if err != nil {
		return false, err
	}
	return len(busy) == 0, nil
}

// Items returns the rendered rows.
func (e *Explorer) Items(ctx context.Context) ([]browser.Element, error) {
	return e.d.FindElements(ctx, e.loc.Rows)
}

func (e *Explorer) Displayed(ctx context.Context, row browser.Element) (bool, error) {
	return row.IsDisplayed(ctx)
}

// ActiveItem returns the selected row.
func (e *Explorer) ActiveItem(ctx context.Context) (browser.Element, error) {
	row, err := e.d.FindElement(ctx, e.loc.Selected)
	if browser.IsNoSuchElement(err) {
		return nil, fmt.Errorf("%w: %v", ErrNoSelection, err)
	}
	return row, err
}

// HasItems is true while rows render or a folder is loading.
func (e *Explorer) HasItems(ctx context.Context) (bool, error) {
	rows, err := e.d.FindElements(ctx, e.loc.Rows)
	if err != nil {
		return false, err
	}
	if len(rows) > 0 {
		return true, nil
	}
	idle, err := e.Idle(ctx)
	return !idle, err
}

func (e *Explorer) container(ctx context.Context) (browser.Element, error) {
	return e.d.FindElement(ctx, e.loc.Container)
}

// Bounds places row in the container's content coordinates.
func (e *Explorer) Bounds(ctx context.Context, row browser.Element) (int, int, error) {
	c, err := e.container(ctx)
	if err != nil {
		return 0, 0, err
	}
	st, err := browser.ReadScrollState(ctx, e.d, c)
	if err != nil {
		return 0, 0, err
	}
	origin, err := c.Location(ctx)
	if err != nil {
		return 0, 0, err
	}
	loc, err := row.Location(ctx)
	if err != nil {
		return 0, 0, err
	}
	size, err := row.Size(ctx)
	if err != nil {
		return 0, 0, err
	}
	return loc.Y - origin.Y + st.Top, size.Height, nil
}

// Key is the row's kind and path.
func (e *Explorer) Key(ctx context.Context, row browser.Element) (string, error) {
	path, err := row.Attribute(ctx, e.loc.Attributes.Path)
	if err != nil {
		return "", err
	}
	if e.loc.Attributes.Kind == "" {
		return path, nil
	}
	kind, err := row.Attribute(ctx, e.loc.Attributes.Kind)
	if err != nil {
		return "", err
	}
	return kind + ":" + path, nil
}

// Index reads the row's position in the flattened tree, -1 if the
// explorer does not render one.
func (e *Explorer) Index(ctx context.Context, row browser.Element) (int, error) {
	if e.loc.Attributes.Index == "" {
		return -1, nil
	}
	raw, err := row.Attribute(ctx, e.loc.Attributes.Index)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1, nil
	}
	return n, nil
}

func (e *Explorer) ScrollProxy() scroll.ScrollProxy { return proxy{e} }

// Segments derives the path from the row's path attribute. Every
// ancestor is a folder.
func (e *Explorer) Segments(ctx context.Context, row browser.Element) ([]tree.Segment, error) {
	path, err := row.Attribute(ctx, e.loc.Attributes.Path)
	if err != nil {
		return nil, err
	}
	folder, err := e.Expandable(ctx, row)
	if err != nil {
		return nil, err
	}
	leaf := tree.File
	if folder {
		leaf = tree.Folder
	}
	return tree.PathOf(leaf, e.split(path)...), nil
}

func (e *Explorer) Depth(ctx context.Context, row browser.Element) (int, error) {
	raw, err := row.Attribute(ctx, e.loc.Attributes.Level)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", e.loc.Attributes.Level, raw, err)
	}
	return n, nil
}

// Expandable is true for folders.
func (e *Explorer) Expandable(ctx context.Context, row browser.Element) (bool, error) {
	if e.loc.Attributes.Kind != "" {
		kind, err := row.Attribute(ctx, e.loc.Attributes.Kind)
		if err != nil {
			return false, err
		}
		return kind == e.loc.Attributes.FolderKind, nil
	}
	toggles, err := row.FindElements(ctx, e.loc.Toggle)
	if err != nil {
		return false, err
	}
	return len(toggles) > 0, nil
}

func (e *Explorer) Expanded(ctx context.Context, row browser.Element) (bool, error) {
	v, err := row.Attribute(ctx, e.loc.Attributes.Expanded)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// Expand clicks the row's expansion toggle.
func (e *Explorer) Expand(ctx context.Context, row browser.Element) error {
	toggle, err := row.FindElement(ctx, e.loc.Toggle)
	if err != nil {
		return err
	}
	return e.d.Perform(ctx, browser.ClickOn(toggle))
}

type proxy struct{ e *Explorer }

func (p proxy) state(ctx context.Context) (browser.ScrollState, error) {
	c, err := p.e.container(ctx)
	if err != nil {
		return browser.ScrollState{}, err
	}
	return browser.ReadScrollState(ctx, p.e.d, c)
}

func (p proxy) ScrollTop(ctx context.Context) (int, error) {
	st, err := p.state(ctx)
	return st.Top, err
}

func (p proxy) ScrollHeight(ctx context.Context) (int, error) {
	st, err := p.state(ctx)
	return st.Height, err
}

func (p proxy) ClientHeight(ctx context.Context) (int, error) {
	st, err := p.state(ctx)
	return st.ClientHeight, err
}

func (p proxy) SetScrollTop(ctx context.Context, top int) error {
	c, err := p.e.container(ctx)
	if err != nil {
		return err
	}
	_, err = browser.SetScrollTop(ctx, p.e.d, c, top)
	return err
}
