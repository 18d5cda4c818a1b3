package tree

import (
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Kind tells folders from files. Node means "either".
type Kind int

const (
	Node Kind = iota
	Folder
	File
)

func (k Kind) String() string {
	switch k {
	case Folder:
		return "folder"
	case File:
		return "file"
	}
	return "node"
}

// Segment is one step of a path.
type Segment struct {
	Label string
	Kind  Kind
}

// Labels returns the plain labels of path.
func Labels(path []Segment) []string {
	out := make([]string, len(path))
	for i, seg := range path {
		out[i] = seg.Label
	}
	return out
}

// PathOf builds a path whose last segment has kind leaf and whose other
// segments are folders.
func PathOf(leaf Kind, labels ...string) []Segment {
	path := make([]Segment, len(labels))
	for i, label := range labels {
		path[i] = Segment{Label: label, Kind: Folder}
	}
	if len(path) > 0 {
		path[len(path)-1].Kind = leaf
	}
	return path
}

// Order is the sibling order a tree renders in.
type Order interface {
	Compare(a, b Segment) int
	// KindSensitive reports whether folders and files interleave by kind,
	// so that a Node segment cannot be placed without knowing its kind.
	KindSensitive() bool
}

// labelCollator orders labels numerically and case-insensitively, falling
// back to a case-sensitive comparison so that distinct labels never tie.
type labelCollator struct {
	mu sync.Mutex
	c  *collate.Collator
}

func newLabelCollator() *labelCollator {
	return &labelCollator{c: collate.New(language.Und, collate.Numeric, collate.IgnoreCase)}
}

func (l *labelCollator) compare(a, b string) int {
	l.mu.Lock()
	c := l.c.CompareString(a, b)
	l.mu.Unlock()
	if c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func rank(k Kind) int {
	if k == File {
		return 1
	}
	return 0
}

// NaturalOrder sorts siblings by label. A file sorts after a folder with
// the same label; a Node matches either.
func NaturalOrder() Order {
	return naturalOrder{newLabelCollator()}
}

type naturalOrder struct{ labels *labelCollator }

func (o naturalOrder) Compare(a, b Segment) int {
	if c := o.labels.compare(a.Label, b.Label); c != 0 {
		return c
	}
	if a.Kind == Node || b.Kind == Node {
		return 0
	}
	return rank(a.Kind) - rank(b.Kind)
}

func (naturalOrder) KindSensitive() bool { return false }

// FoldersFirst sorts every folder before every file, each group by label.
// This is the default order of IDE file explorers.
func FoldersFirst() Order {
	return foldersFirst{newLabelCollator()}
}

type foldersFirst struct{ labels *labelCollator }

func (o foldersFirst) Compare(a, b Segment) int {
	if a.Kind != Node && b.Kind != Node {
		if r := rank(a.Kind) - rank(b.Kind); r != 0 {
			return r
		}
	}
	return o.labels.compare(a.Label, b.Label)
}

func (foldersFirst) KindSensitive() bool { return true }

// ComparePaths orders two root-relative paths in tree pre-order: siblings
// by o, and an ancestor before all of its descendants.
func ComparePaths(o Order, a, b []Segment) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := o.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}
