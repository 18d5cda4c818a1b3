package selenium

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tebeka/selenium"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

const (
	adapterName = "selenium"
	// lineHeight converts line scroll deltas to pixels.
	lineHeight = 20
)

// Session drives one remote WebDriver session.
type Session struct {
	id      string
	wd      selenium.WebDriver
	metrics *browser.Metrics
}

// ID returns the session identifier.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// WebDriver exposes the underlying client.
func (s *Session) WebDriver() selenium.WebDriver { return s.wd }

func (s *Session) record(command string, started time.Time, err *error) {
	s.metrics.RecordCommand(adapterName, command, *err, time.Since(started))
}

// Navigate loads url.
func (s *Session) Navigate(ctx context.Context, url string) (err error) {
	defer s.record("get", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}
	return convertError("navigate", s.wd.Get(url))
}

// Close quits the remote session.
func (s *Session) Close() error {
	if s == nil || s.wd == nil {
		return nil
	}
	return convertError("quit", s.wd.Quit())
}

func (s *Session) FindElement(ctx context.Context, l browser.Locator) (_ browser.Element, err error) {
	defer s.record("findElement", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	using, value := by(l)
	we, err := s.wd.FindElement(using, value)
	if err != nil {
		return nil, convertError(l.String(), err)
	}
	return s.wrap(we), nil
}

func (s *Session) FindElements(ctx context.Context, l browser.Locator) (_ []browser.Element, err error) {
	defer s.record("findElements", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	using, value := by(l)
	wes, err := s.wd.FindElements(using, value)
	if err != nil {
		return nil, convertError(l.String(), err)
	}
	return s.wrapAll(wes), nil
}

// ExecuteScript runs script with element arguments unwrapped to WebDriver
// references.
func (s *Session) ExecuteScript(ctx context.Context, script string, args ...any) (_ any, err error) {
	defer s.record("executeScript", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := make([]any, len(args))
	for i, arg := range args {
		if el, ok := arg.(*element); ok {
			raw[i] = el.we
			continue
		}
		raw[i] = arg
	}
	out, err := s.wd.ExecuteScript(script, raw)
	return out, convertError("execute script", err)
}

// Perform runs actions one by one. Modifiers are held for the duration of
// their action.
func (s *Session) Perform(ctx context.Context, actions ...browser.Action) (err error) {
	defer s.record("perform", time.Now(), &err)
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.perform(a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) perform(a browser.Action) error {
	mods, err := modifiers(a.Modifiers)
	if err != nil {
		return err
	}
	if mods != "" {
		if err := s.wd.KeyDown(mods); err != nil {
			return convertError("key down", err)
		}
		defer func() { _ = s.wd.KeyUp(mods) }()
	}

	var target selenium.WebElement
	if a.Target != nil && a.Target.Element != nil {
		el, ok := a.Target.Element.(*element)
		if !ok {
			return browser.NewDriverError("invalid argument", "action target belongs to another adapter")
		}
		target = el.we
	}

	switch a.Type {
	case browser.ActionClick:
		if target == nil {
			return browser.NewDriverError("invalid argument", "click needs a target element")
		}
		return convertError("click", target.Click())
	case browser.ActionHover:
		if target == nil {
			return browser.NewDriverError("invalid argument", "hover needs a target element")
		}
		return convertError("hover", target.MoveTo(0, 0))
	case browser.ActionScroll:
		if target == nil || a.Scroll == nil {
			return browser.NewDriverError("invalid argument", "scroll needs a target element and a delta")
		}
		dy := a.Scroll.Y
		if a.Scroll.Unit == browser.ScrollUnitLines {
			dy *= lineHeight
		}
		_, err := s.wd.ExecuteScript(browser.ScriptScrollBy, []any{target, dy})
		return convertError("scroll", err)
	case browser.ActionKey, browser.ActionTypeText:
		text := a.Key
		if a.Type == browser.ActionTypeText {
			text = a.Text
		}
		if target == nil {
			active, err := s.wd.ActiveElement()
			if err != nil {
				return convertError("active element", err)
			}
			target = active
		}
		return convertError("send keys", target.SendKeys(text))
	}
	return browser.WrapDriverError("unsupported operation", string(a.Type), browser.ErrNotImplemented)
}

func (s *Session) wrap(we selenium.WebElement) *element {
	return &element{s: s, we: we, id: uuid.NewString()}
}

func (s *Session) wrapAll(wes []selenium.WebElement) []browser.Element {
	out := make([]browser.Element, len(wes))
	for i, we := range wes {
		out[i] = s.wrap(we)
	}
	return out
}

// element wraps a WebDriver reference. The id names the handle, not the
// DOM node.
type element struct {
	s  *Session
	we selenium.WebElement
	id string
}

func (e *element) ID() string { return e.id }

func (e *element) FindElement(ctx context.Context, l browser.Locator) (_ browser.Element, err error) {
	defer e.s.record("findChildElement", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	using, value := by(l)
	we, err := e.we.FindElement(using, value)
	if err != nil {
		return nil, convertError(l.String(), err)
	}
	return e.s.wrap(we), nil
}

func (e *element) FindElements(ctx context.Context, l browser.Locator) (_ []browser.Element, err error) {
	defer e.s.record("findChildElements", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	using, value := by(l)
	wes, err := e.we.FindElements(using, value)
	if err != nil {
		return nil, convertError(l.String(), err)
	}
	return e.s.wrapAll(wes), nil
}

func (e *element) Attribute(ctx context.Context, name string) (_ string, err error) {
	defer e.s.record("getAttribute", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.we.GetAttribute(name)
	return v, convertError("attribute "+name, err)
}

func (e *element) Text(ctx context.Context) (_ string, err error) {
	defer e.s.record("getText", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.we.Text()
	return v, convertError("text", err)
}

func (e *element) IsDisplayed(ctx context.Context) (_ bool, err error) {
	defer e.s.record("isDisplayed", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v, err := e.we.IsDisplayed()
	return v, convertError("displayed", err)
}

func (e *element) Size(ctx context.Context) (_ browser.Size, err error) {
	defer e.s.record("getSize", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return browser.Size{}, err
	}
	sz, err := e.we.Size()
	if err != nil {
		return browser.Size{}, convertError("size", err)
	}
	return browser.Size{Width: sz.Width, Height: sz.Height}, nil
}

func (e *element) Location(ctx context.Context) (_ browser.Point, err error) {
	defer e.s.record("getLocation", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return browser.Point{}, err
	}
	pt, err := e.we.Location()
	if err != nil {
		return browser.Point{}, convertError("location", err)
	}
	return browser.Point{X: pt.X, Y: pt.Y}, nil
}

func (e *element) Click(ctx context.Context) (err error) {
	defer e.s.record("click", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}
	return convertError("click", e.we.Click())
}

func (e *element) SendKeys(ctx context.Context, keys string) (err error) {
	defer e.s.record("sendKeys", time.Now(), &err)
	if err := ctx.Err(); err != nil {
		return err
	}
	return convertError("send keys", e.we.SendKeys(keys))
}
