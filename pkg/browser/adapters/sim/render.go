package sim

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// Class names and attributes of the rendered explorer.
const (
	ClassContainer = "theia-TreeContainer"
	ClassRow       = "theia-TreeNode"
	ClassLabel     = "theia-TreeNodeSegment"
	ClassToggle    = "theia-ExpansionToggle"
	ClassBusy      = "theia-TreeContainer-busy"
	ClassSelected  = "theia-mod-selected"
	ClassCollapsed = "theia-mod-collapsed"

	AttrPath      = "data-node-path"
	AttrKind      = "data-node-kind"
	AttrIndex     = "data-index"
	AttrLevel     = "aria-level"
	AttrExpanded  = "aria-expanded"
	attrID        = "data-sim-id"
	attrOffscreen = "data-offscreen"
)

// flatten lists the rows of the expanded tree in pre-order. Children of a
// loading folder are not rendered yet.
func (s *Session) flatten() []*entry {
	var rows []*entry
	var visit func(e *entry)
	visit = func(e *entry) {
		for _, c := range e.children {
			rows = append(rows, c)
			if _, busy := s.loading[c]; c.folder && s.expanded[c] && !busy {
				visit(c)
			}
		}
	}
	visit(s.ws.root)
	return rows
}

func (s *Session) clientHeight() int { return s.cfg.VisibleRows * s.cfg.RowHeight }

func (s *Session) maxTop(rows int) int {
	limit := rows*s.cfg.RowHeight - s.clientHeight()
	if limit < 0 {
		return 0
	}
	return limit
}

// render rebuilds the document when state changed. Rows that stay in the
// rendered range keep their element ids; rows that leave it are unmounted
// and their handles go stale.
func (s *Session) render() (*goquery.Document, error) {
	if s.doc != nil && !s.dirty {
		return s.doc, nil
	}
	rows := s.flatten()
	if s.top > s.maxTop(len(rows)) {
		s.top = s.maxTop(len(rows))
	}
	rh := s.cfg.RowHeight
	start := s.top / rh
	visibleEnd := (s.top + s.clientHeight() + rh - 1) / rh
	end := visibleEnd + s.cfg.Overscan
	if end > len(rows) {
		end = len(rows)
	}

	mounts := make(map[*entry]uuid.UUID, end-start)
	var sb strings.Builder
	fmt.Fprintf(&sb, `<div id="explorer"><div class="%s" %s="%s">`, ClassContainer, attrID, s.containerID)
	if len(s.loading) > 0 {
		fmt.Fprintf(&sb, `<div class="%s" %s="%s"></div>`, ClassBusy, attrID, s.busyID)
	}
	for i := start; i < end; i++ {
		e := rows[i]
		id, ok := s.mounts[e]
		if !ok {
			id = uuid.New()
		}
		mounts[e] = id

		classes := ClassRow
		if e == s.selected {
			classes += " " + ClassSelected
		}
		kind := "file"
		if e.folder {
			kind = "folder"
		}
		fmt.Fprintf(&sb, `<div class="%s" %s="%s" %s="%s" %s="%s" %s="%d" %s="%d"`,
			classes, attrID, id, AttrPath, html.EscapeString(e.path()), AttrKind, kind, AttrLevel, e.depth(), AttrIndex, i)
		if e.folder {
			fmt.Fprintf(&sb, ` %s="%t"`, AttrExpanded, s.expanded[e])
		}
		if i >= visibleEnd {
			fmt.Fprintf(&sb, ` %s="true"`, attrOffscreen)
		}
		sb.WriteString(">")
		if e.folder {
			toggle := ClassToggle
			if !s.expanded[e] {
				toggle += " " + ClassCollapsed
			}
			fmt.Fprintf(&sb, `<span class="%s" %s="%s"></span>`, toggle, attrID, childID(id, "toggle"))
		}
		fmt.Fprintf(&sb, `<span class="%s" %s="%s">%s</span></div>`, ClassLabel, attrID, childID(id, "label"), html.EscapeString(e.name))
	}
	sb.WriteString("</div></div>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
	if err != nil {
		return nil, err
	}
	s.doc = doc
	s.mounts = mounts
	s.rows = rows
	s.dirty = false
	return doc, nil
}

// childID derives stable ids for the parts of a mounted row.
func childID(row uuid.UUID, part string) uuid.UUID {
	return uuid.NewSHA1(row, []byte(part))
}
