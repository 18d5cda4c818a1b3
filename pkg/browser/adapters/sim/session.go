package sim

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/google/uuid"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

const adapterName = "sim"

// WebDriver key codes understood by SendKeys.
const (
	KeyUp    = "\ue013"
	KeyDown  = "\ue015"
	KeyLeft  = "\ue012"
	KeyRight = "\ue014"
	KeyEnter = "\ue007"
)

// Session is a simulated browser showing one explorer.
type Session struct {
	id  string
	cfg Config
	ws  *Workspace

	mu       sync.Mutex
	closed   bool
	url      string
	expanded map[*entry]bool
	loaded   map[*entry]bool
	loading  map[*entry]int
	selected *entry
	top      int

	containerID uuid.UUID
	busyID      uuid.UUID
	mounts      map[*entry]uuid.UUID
	rows        []*entry
	doc         *goquery.Document
	dirty       bool
}

func newSession(id string, ws *Workspace, cfg Config) *Session {
	s := &Session{id: id, cfg: cfg, ws: ws}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.expanded = make(map[*entry]bool)
	s.loaded = make(map[*entry]bool)
	s.loading = make(map[*entry]int)
	s.mounts = make(map[*entry]uuid.UUID)
	s.selected = nil
	s.top = 0
	s.containerID = uuid.New()
	s.busyID = uuid.New()
	s.dirty = true
}

// ID returns the session identifier.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Navigate reloads the explorer: folders collapse and every handle goes
// stale.
func (s *Session) Navigate(ctx context.Context, url string) (err error) {
	defer s.record("navigate", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	s.url = url
	s.reset()
	return nil
}

// Close ends the session.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) ensureOpen() error {
	if s.closed {
		return browser.WrapDriverError(browser.CodeSessionClosed, "session "+s.id, browser.ErrSessionClosed)
	}
	return nil
}

func (s *Session) record(command string, started time.Time, err *error) {
	s.cfg.Metrics.RecordCommand(adapterName, command, *err, time.Since(started))
}

// tick advances lazy folder loads by one poll. A folder stays loading for
// LoadPolls lookups after its first expansion.
func (s *Session) tick() {
	for e, polls := range s.loading {
		if polls == 0 {
			delete(s.loading, e)
		} else {
			s.loading[e] = polls - 1
		}
		s.dirty = true
	}
}

// FindElement returns the first element matching by.
func (s *Session) FindElement(ctx context.Context, by browser.Locator) (_ browser.Element, err error) {
	defer s.record("findElement", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	els, err := s.find(nil, by)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, browser.NewDriverError(browser.CodeNoSuchElement, by.String())
	}
	return els[0], nil
}

// FindElements returns every element matching by.
func (s *Session) FindElements(ctx context.Context, by browser.Locator) (_ []browser.Element, err error) {
	defer s.record("findElements", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(nil, by)
}

// find resolves by below scope, or the whole document when scope is nil.
// Callers hold s.mu.
func (s *Session) find(scope *element, by browser.Locator) ([]browser.Element, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	css, ok := by.CSS()
	if !ok {
		return nil, browser.NewDriverError(browser.CodeInvalidSelector, by.String()+" is not supported")
	}
	var root *goquery.Selection
	if scope == nil {
		s.tick()
		doc, err := s.render()
		if err != nil {
			return nil, err
		}
		root = doc.Selection
	} else {
		sel, err := s.lookup(scope.id)
		if err != nil {
			return nil, err
		}
		root = sel
	}

	matcher, err := cascadia.Compile(css)
	if err != nil {
		return nil, browser.WrapDriverError(browser.CodeInvalidSelector, by.String(), err)
	}
	var els []browser.Element
	root.FindMatcher(matcher).Each(func(_ int, sel *goquery.Selection) {
		if id, ok := sel.Attr(attrID); ok {
			els = append(els, &element{s: s, id: id})
		}
	})
	return els, nil
}

// lookup finds a handle in the current render. Callers hold s.mu.
func (s *Session) lookup(id string) (*goquery.Selection, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	doc, err := s.render()
	if err != nil {
		return nil, err
	}
	sel := doc.Find(fmt.Sprintf(`[%s="%s"]`, attrID, id))
	if sel.Length() == 0 {
		return nil, browser.NewDriverError(browser.CodeStaleElement, "element "+id+" is no longer attached to the DOM")
	}
	return sel.First(), nil
}

// rowOf resolves the entry rendered by sel or its enclosing row.
func (s *Session) rowOf(sel *goquery.Selection) (*entry, int, bool) {
	row := sel.Closest("." + ClassRow)
	if row.Length() == 0 {
		return nil, 0, false
	}
	path, _ := row.Attr(AttrPath)
	kind, _ := row.Attr(AttrKind)
	idx, _ := strconv.Atoi(row.AttrOr(AttrIndex, "-1"))
	e := s.ws.lookup(path, kind == "folder")
	return e, idx, e != nil
}

func (s *Session) isContainer(id string) bool { return id == s.containerID.String() }

// ExecuteScript runs the well-known scripts of the browser package.
func (s *Session) ExecuteScript(ctx context.Context, script string, args ...any) (_ any, err error) {
	defer s.record("executeScript", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, browser.NewDriverError("javascript error", "arguments[0] is undefined")
	}
	el, ok := args[0].(*element)
	if !ok || el.s != s {
		return nil, browser.NewDriverError("invalid argument", fmt.Sprintf("arguments[0] is %T", args[0]))
	}
	sel, err := s.lookup(el.id)
	if err != nil {
		return nil, err
	}

	switch script {
	case browser.ScriptScrollState:
		if !s.isContainer(el.id) {
			return map[string]any{"scrollTop": 0.0, "scrollHeight": 0.0, "clientHeight": 0.0}, nil
		}
		return map[string]any{
			"scrollTop":    float64(s.top),
			"scrollHeight": float64(len(s.rows) * s.cfg.RowHeight),
			"clientHeight": float64(s.clientHeight()),
		}, nil
	case browser.ScriptSetScrollTop, browser.ScriptScrollBy:
		if len(args) < 2 {
			return nil, browser.NewDriverError("javascript error", "arguments[1] is undefined")
		}
		n, err := browser.ToInt(args[1])
		if err != nil {
			return nil, browser.WrapDriverError("javascript error", "scroll offset", err)
		}
		if !s.isContainer(el.id) {
			return 0.0, nil
		}
		if script == browser.ScriptScrollBy {
			n += s.top
		}
		s.scrollTo(n)
		return float64(s.top), nil
	case browser.ScriptScrollIntoView:
		_, idx, ok := s.rowOf(sel)
		if ok {
			s.scrollTo(idx * s.cfg.RowHeight)
		}
		return true, nil
	}
	return nil, browser.WrapDriverError("unsupported operation", "script is not simulated", browser.ErrNotImplemented)
}

func (s *Session) scrollTo(top int) {
	if top > s.maxTop(len(s.rows)) {
		top = s.maxTop(len(s.rows))
	}
	if top < 0 {
		top = 0
	}
	if top != s.top {
		s.top = top
		s.dirty = true
	}
}

// Perform runs actions in order.
func (s *Session) Perform(ctx context.Context, actions ...browser.Action) (err error) {
	defer s.record("perform", time.Now(), &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpen(); err != nil {
		return err
	}
	for _, a := range actions {
		var target *element
		if a.Target != nil && a.Target.Element != nil {
			el, ok := a.Target.Element.(*element)
			if !ok || el.s != s {
				return browser.NewDriverError("invalid argument", "action target belongs to another session")
			}
			target = el
		}
		if err := s.perform(a, target); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) perform(a browser.Action, target *element) error {
	if target == nil && a.Type != browser.ActionKey {
		return browser.NewDriverError("invalid argument", string(a.Type)+" needs a target element")
	}
	switch a.Type {
	case browser.ActionClick:
		return s.click(target.id)
	case browser.ActionHover:
		_, err := s.lookup(target.id)
		return err
	case browser.ActionScroll:
		if _, err := s.lookup(target.id); err != nil {
			return err
		}
		if a.Scroll != nil {
			dy := a.Scroll.Y
			if a.Scroll.Unit == browser.ScrollUnitLines {
				dy *= s.cfg.RowHeight
			}
			s.scrollTo(s.top + dy)
		}
		return nil
	case browser.ActionKey:
		s.keys(a.Key)
		return nil
	case browser.ActionTypeText:
		s.keys(a.Text)
		return nil
	}
	return browser.WrapDriverError("unsupported operation", string(a.Type), browser.ErrNotImplemented)
}

// click toggles a folder when the toggle is hit and selects the row
// otherwise.
func (s *Session) click(id string) error {
	sel, err := s.lookup(id)
	if err != nil {
		return err
	}
	e, _, ok := s.rowOf(sel)
	if !ok {
		return nil
	}
	if sel.HasClass(ClassToggle) {
		s.toggle(e, !s.expanded[e])
		return nil
	}
	s.selected = e
	s.dirty = true
	return nil
}

func (s *Session) toggle(e *entry, open bool) {
	if !e.folder || s.expanded[e] == open {
		return
	}
	if open {
		s.expanded[e] = true
		if !s.loaded[e] && s.cfg.LoadPolls > 0 {
			s.loading[e] = s.cfg.LoadPolls
		}
		s.loaded[e] = true
	} else {
		delete(s.expanded, e)
	}
	s.dirty = true
}

// keys moves the selection like an explorer's keyboard handler.
func (s *Session) keys(text string) {
	if _, err := s.render(); err != nil {
		return
	}
	for _, r := range text {
		key := string(r)
		idx := -1
		for i, e := range s.rows {
			if e == s.selected {
				idx = i
			}
		}
		switch key {
		case KeyDown:
			if idx+1 < len(s.rows) {
				s.selected = s.rows[idx+1]
			}
		case KeyUp:
			if idx > 0 {
				s.selected = s.rows[idx-1]
			}
		case KeyRight, KeyEnter:
			if s.selected != nil {
				s.toggle(s.selected, key == KeyRight || !s.expanded[s.selected])
			}
		case KeyLeft:
			if s.selected != nil {
				s.toggle(s.selected, false)
			}
		default:
			continue
		}
		s.dirty = true
		// rows change when a folder toggles
		if _, err := s.render(); err != nil {
			return
		}
	}
}

// Selected returns the path of the selected row, or "".
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return ""
	}
	return s.selected.path()
}

// URL returns the last navigated address.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

type element struct {
	s  *Session
	id string
}

func (e *element) ID() string { return e.id }

func (e *element) FindElement(ctx context.Context, by browser.Locator) (_ browser.Element, err error) {
	defer e.s.record("findChildElement", time.Now(), &err)
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	els, err := e.s.find(e, by)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, browser.NewDriverError(browser.CodeNoSuchElement, by.String())
	}
	return els[0], nil
}

func (e *element) FindElements(ctx context.Context, by browser.Locator) (_ []browser.Element, err error) {
	defer e.s.record("findChildElements", time.Now(), &err)
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.find(e, by)
}

func (e *element) Attribute(ctx context.Context, name string) (_ string, err error) {
	defer e.s.record("getAttribute", time.Now(), &err)
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	sel, err := e.s.lookup(e.id)
	if err != nil {
		return "", err
	}
	return sel.AttrOr(name, ""), nil
}

func (e *element) Text(ctx context.Context) (_ string, err error) {
	defer e.s.record("getText", time.Now(), &err)
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	sel, err := e.s.lookup(e.id)
	if err != nil {
		return "", err
	}
	if _, off := sel.Closest("[" + attrOffscreen + "]").Attr(attrOffscreen); off {
		// WebDriver reports no text for elements that are not displayed
		return "", nil
	}
	return strings.TrimSpace(sel.Text()), nil
}

func (e *element) IsDisplayed(ctx context.Context) (_ bool, err error) {
	defer e.s.record("isDisplayed", time.Now(), &err)
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	sel, err := e.s.lookup(e.id)
	if err != nil {
		return false, err
	}
	return sel.Closest("["+attrOffscreen+"]").Length() == 0, nil
}

func (e *element) Size(ctx context.Context) (_ browser.Size, err error) {
	defer e.s.record("getSize", time.Now(), &err)
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if _, err := e.s.lookup(e.id); err != nil {
		return browser.Size{}, err
	}
	if e.s.isContainer(e.id) {
		return browser.Size{Width: 300, Height: e.s.clientHeight()}, nil
	}
	return browser.Size{Width: 300, Height: e.s.cfg.RowHeight}, nil
}

// Location is relative to the top of the scroll container.
func (e *element) Location(ctx context.Context) (_ browser.Point, err error) {
	defer e.s.record("getLocation", time.Now(), &err)
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	sel, err := e.s.lookup(e.id)
	if err != nil {
		return browser.Point{}, err
	}
	row, idx, ok := e.s.rowOf(sel)
	if !ok {
		return browser.Point{}, nil
	}
	return browser.Point{X: 8 * (row.depth() - 1), Y: idx*e.s.cfg.RowHeight - e.s.top}, nil
}

func (e *element) Click(ctx context.Context) (err error) {
	defer e.s.record("click", time.Now(), &err)
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.click(e.id)
}

func (e *element) SendKeys(ctx context.Context, keys string) (err error) {
	defer e.s.record("sendKeys", time.Now(), &err)
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if _, err := e.s.lookup(e.id); err != nil {
		return err
	}
	e.s.keys(keys)
	return nil
}
