package rod

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

const (
	adapterName = "rod"
	lineHeight  = 20
)

// Session drives one browser tab over DevTools.
type Session struct {
	id      string
	page    *rod.Page
	metrics *browser.Metrics
}

// ID returns the session identifier.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Page exposes the underlying rod page.
func (s *Session) Page() *rod.Page { return s.page }

func (s *Session) record(command string, started time.Time, err *error) {
	s.metrics.RecordCommand(adapterName, command, *err, time.Since(started))
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) (err error) {
	defer s.record("navigate", time.Now(), &err)
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return convertError("navigate", err)
	}
	return convertError("wait load", p.WaitLoad())
}

// Close closes the tab.
func (s *Session) Close() error {
	if s == nil || s.page == nil {
		return nil
	}
	return convertError("close", s.page.Close())
}

func (s *Session) FindElement(ctx context.Context, l browser.Locator) (browser.Element, error) {
	els, err := s.FindElements(ctx, l)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, browser.NewDriverError(browser.CodeNoSuchElement, l.String())
	}
	return els[0], nil
}

// FindElements queries without waiting. rod's Element helpers poll until a
// match exists, which would hide an empty result behind the page timeout.
func (s *Session) FindElements(ctx context.Context, l browser.Locator) (_ []browser.Element, err error) {
	defer s.record("findElements", time.Now(), &err)
	p := s.page.Context(ctx)
	var els rod.Elements
	switch l.Using {
	case browser.UsingXPath:
		els, err = p.ElementsX(l.Value)
	default:
		sel, _ := l.CSS()
		els, err = p.Elements(sel)
	}
	if err != nil {
		return nil, convertError(l.String(), err)
	}
	return s.wrapAll(els), nil
}

// ExecuteScript evaluates a function body. Element arguments are passed by
// remote object reference.
func (s *Session) ExecuteScript(ctx context.Context, script string, args ...any) (_ any, err error) {
	defer s.record("eval", time.Now(), &err)
	js := make([]any, len(args))
	for i, arg := range args {
		if el, ok := arg.(*element); ok {
			js[i] = el.el.Object
			continue
		}
		js[i] = arg
	}
	res, err := s.page.Context(ctx).Eval(wrapScript(script), js...)
	if err != nil {
		return nil, convertError("execute script", err)
	}
	return res.Value.Val(), nil
}

// Perform runs actions in order.
func (s *Session) Perform(ctx context.Context, actions ...browser.Action) (err error) {
	defer s.record("perform", time.Now(), &err)
	p := s.page.Context(ctx)
	for _, a := range actions {
		if err := s.perform(p, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) perform(p *rod.Page, a browser.Action) (err error) {
	var held []input.Key
	for _, m := range a.Modifiers {
		k, ok := modifierKeys[m]
		if !ok {
			return browser.NewDriverError("invalid argument", "unknown modifier "+string(m))
		}
		if err := p.Keyboard.Press(k); err != nil {
			return convertError("key down", err)
		}
		held = append(held, k)
	}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = p.Keyboard.Release(held[i])
		}
	}()

	var target *rod.Element
	if a.Target != nil && a.Target.Element != nil {
		el, ok := a.Target.Element.(*element)
		if !ok {
			return browser.NewDriverError("invalid argument", "action target belongs to another adapter")
		}
		target = el.el.Context(p.GetContext())
	}

	switch a.Type {
	case browser.ActionClick:
		if target == nil {
			return browser.NewDriverError("invalid argument", "click needs a target element")
		}
		return convertError("click", target.Click(proto.InputMouseButtonLeft, 1))
	case browser.ActionHover:
		if target == nil {
			return browser.NewDriverError("invalid argument", "hover needs a target element")
		}
		return convertError("hover", target.Hover())
	case browser.ActionScroll:
		if a.Scroll == nil {
			return browser.NewDriverError("invalid argument", "scroll needs a delta")
		}
		dx, dy := float64(a.Scroll.X), float64(a.Scroll.Y)
		if a.Scroll.Unit == browser.ScrollUnitLines {
			dx, dy = dx*lineHeight, dy*lineHeight
		}
		if target != nil {
			if err := target.Hover(); err != nil {
				return convertError("hover", err)
			}
		}
		return convertError("scroll", p.Mouse.Scroll(dx, dy, 1))
	case browser.ActionKey:
		keys, ok := splitKeys(a.Key)
		if !ok {
			return convertError("insert text", p.InsertText(a.Key))
		}
		return convertError("type", p.Keyboard.Type(keys...))
	case browser.ActionTypeText:
		if target != nil {
			return convertError("input", target.Input(a.Text))
		}
		return convertError("insert text", p.InsertText(a.Text))
	}
	return browser.WrapDriverError("unsupported operation", string(a.Type), browser.ErrNotImplemented)
}

func (s *Session) wrapAll(els rod.Elements) []browser.Element {
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = &element{s: s, el: el}
	}
	return out
}

// element wraps a remote object handle.
type element struct {
	s  *Session
	el *rod.Element
}

func (e *element) ID() string {
	if e.el.Object == nil {
		return ""
	}
	return string(e.el.Object.ObjectID)
}

func (e *element) FindElement(ctx context.Context, l browser.Locator) (browser.Element, error) {
	els, err := e.FindElements(ctx, l)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, browser.NewDriverError(browser.CodeNoSuchElement, l.String())
	}
	return els[0], nil
}

func (e *element) FindElements(ctx context.Context, l browser.Locator) (_ []browser.Element, err error) {
	defer e.s.record("findChildElements", time.Now(), &err)
	el := e.el.Context(ctx)
	var els rod.Elements
	switch l.Using {
	case browser.UsingXPath:
		els, err = el.ElementsX(l.Value)
	default:
		sel, _ := l.CSS()
		els, err = el.Elements(sel)
	}
	if err != nil {
		return nil, convertError(l.String(), err)
	}
	return e.s.wrapAll(els), nil
}

func (e *element) Attribute(ctx context.Context, name string) (_ string, err error) {
	defer e.s.record("attribute", time.Now(), &err)
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", convertError("attribute "+name, err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (e *element) Text(ctx context.Context) (_ string, err error) {
	defer e.s.record("text", time.Now(), &err)
	v, err := e.el.Context(ctx).Text()
	return v, convertError("text", err)
}

func (e *element) IsDisplayed(ctx context.Context) (_ bool, err error) {
	defer e.s.record("visible", time.Now(), &err)
	v, err := e.el.Context(ctx).Visible()
	return v, convertError("visible", err)
}

func (e *element) box(ctx context.Context) (*proto.DOMRect, error) {
	shape, err := e.el.Context(ctx).Shape()
	if err != nil {
		return nil, convertError("shape", err)
	}
	box := shape.Box()
	if box == nil {
		return &proto.DOMRect{}, nil
	}
	return box, nil
}

func (e *element) Size(ctx context.Context) (_ browser.Size, err error) {
	defer e.s.record("size", time.Now(), &err)
	box, err := e.box(ctx)
	if err != nil {
		return browser.Size{}, err
	}
	return browser.Size{Width: int(box.Width), Height: int(box.Height)}, nil
}

func (e *element) Location(ctx context.Context) (_ browser.Point, err error) {
	defer e.s.record("location", time.Now(), &err)
	box, err := e.box(ctx)
	if err != nil {
		return browser.Point{}, err
	}
	return browser.Point{X: int(box.X), Y: int(box.Y)}, nil
}

func (e *element) Click(ctx context.Context) (err error) {
	defer e.s.record("click", time.Now(), &err)
	return convertError("click", e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

func (e *element) SendKeys(ctx context.Context, keys string) (err error) {
	defer e.s.record("sendKeys", time.Now(), &err)
	el := e.el.Context(ctx)
	if pressed, ok := splitKeys(keys); ok {
		if err := el.Focus(); err != nil {
			return convertError("focus", err)
		}
		return convertError("type", e.s.page.Context(ctx).Keyboard.Type(pressed...))
	}
	return convertError("input", el.Input(keys))
}
