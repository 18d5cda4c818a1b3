package sim

import (
	"sort"
	"strings"

	"github.com/odvcencio/ideprobe/pkg/tree"
)

type entry struct {
	name     string
	folder   bool
	parent   *entry
	children []*entry
}

func (e *entry) path() string {
	var parts []string
	for p := e; p != nil && p.parent != nil; p = p.parent {
		parts = append([]string{p.name}, parts...)
	}
	return strings.Join(parts, "/")
}

func (e *entry) depth() int {
	n := 0
	for p := e; p != nil && p.parent != nil; p = p.parent {
		n++
	}
	return n
}

func (e *entry) segment() tree.Segment {
	kind := tree.File
	if e.folder {
		kind = tree.Folder
	}
	return tree.Segment{Label: e.name, Kind: kind}
}

// Workspace is the file tree an explorer shows. Siblings render folders
// first, each group in natural label order.
type Workspace struct {
	root  *entry
	byKey map[string]*entry
}

// NewWorkspace builds a workspace from slash-separated paths. A trailing
// slash marks an empty folder; parent folders are implied.
func NewWorkspace(paths ...string) *Workspace {
	ws := &Workspace{root: &entry{folder: true}, byKey: make(map[string]*entry)}
	for _, p := range paths {
		folder := strings.HasSuffix(p, "/")
		parts := strings.Split(strings.Trim(p, "/"), "/")
		parent := ws.root
		for i, name := range parts {
			if name == "" {
				continue
			}
			isFolder := folder || i < len(parts)-1
			parent = ws.child(parent, name, isFolder)
		}
	}
	ws.sort(ws.root, tree.FoldersFirst())
	return ws
}

func (ws *Workspace) child(parent *entry, name string, folder bool) *entry {
	for _, c := range parent.children {
		if c.name == name && c.folder == folder {
			return c
		}
	}
	c := &entry{name: name, folder: folder, parent: parent}
	parent.children = append(parent.children, c)
	ws.byKey[key(c)] = c
	return c
}

func key(e *entry) string {
	if e.folder {
		return e.path() + "/"
	}
	return e.path()
}

func (ws *Workspace) sort(e *entry, order tree.Order) {
	sort.SliceStable(e.children, func(i, j int) bool {
		return order.Compare(e.children[i].segment(), e.children[j].segment()) < 0
	})
	for _, c := range e.children {
		ws.sort(c, order)
	}
}

// lookup resolves a rendered row back to its entry.
func (ws *Workspace) lookup(path string, folder bool) *entry {
	if folder {
		path += "/"
	}
	return ws.byKey[path]
}
