package browser

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Strategy is a WebDriver element location strategy.
type Strategy string

const (
	UsingCSS   Strategy = "css selector"
	UsingXPath Strategy = "xpath"
	UsingID    Strategy = "id"
)

// Locator selects elements relative to a driver or a parent element.
type Locator struct {
	Using Strategy `yaml:"using" json:"using"`
	Value string   `yaml:"value" json:"value"`
}

// ByCSS locates elements by CSS selector.
func ByCSS(selector string) Locator { return Locator{Using: UsingCSS, Value: selector} }

// ByXPath locates elements by XPath expression.
func ByXPath(expr string) Locator { return Locator{Using: UsingXPath, Value: expr} }

// ByID locates an element by its id attribute.
func ByID(id string) Locator { return Locator{Using: UsingID, Value: id} }

// CSS returns the locator as a CSS selector. XPath locators have none.
func (l Locator) CSS() (string, bool) {
	switch l.Using {
	case UsingCSS, "":
		return l.Value, true
	case UsingID:
		return "#" + l.Value, true
	}
	return "", false
}

// IsZero reports whether the locator is unset.
func (l Locator) IsZero() bool { return l.Value == "" }

func (l Locator) String() string {
	return fmt.Sprintf("By(%s: %s)", l.Using, l.Value)
}

// UnmarshalYAML accepts a bare string as a CSS selector, or a mapping with
// using and value.
func (l *Locator) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*l = ByCSS(node.Value)
		return nil
	}
	type plain Locator
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Using == "" {
		p.Using = UsingCSS
	}
	switch p.Using {
	case UsingCSS, UsingXPath, UsingID:
	default:
		return fmt.Errorf("unknown locator strategy %q", p.Using)
	}
	*l = Locator(p)
	return nil
}

// Viewport defines the browser viewport size.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Rect describes a rectangle in viewport coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point describes a coordinate in viewport space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is an element's rendered size.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ActionType represents the supported composite gestures.
type ActionType string

const (
	ActionClick    ActionType = "click"
	ActionTypeText ActionType = "type"
	ActionScroll   ActionType = "scroll"
	ActionHover    ActionType = "hover"
	ActionKey      ActionType = "key"
)

// KeyModifier describes a keyboard modifier.
type KeyModifier string

const (
	KeyModifierShift KeyModifier = "shift"
	KeyModifierAlt   KeyModifier = "alt"
	KeyModifierCtrl  KeyModifier = "ctrl"
	KeyModifierMeta  KeyModifier = "meta"
)

// ScrollUnit describes how scroll deltas are interpreted.
type ScrollUnit string

const (
	ScrollUnitPixels ScrollUnit = "pixels"
	ScrollUnitLines  ScrollUnit = "lines"
)

// ScrollDelta captures a scroll action intent.
type ScrollDelta struct {
	X    int        `json:"x,omitempty"`
	Y    int        `json:"y,omitempty"`
	Unit ScrollUnit `json:"unit,omitempty"`
}

// ActionTarget identifies where an action should be applied.
type ActionTarget struct {
	Element Element `json:"-"`
	Point   *Point  `json:"point,omitempty"`
}

// Action is one step of a composite gesture.
type Action struct {
	Type      ActionType    `json:"type"`
	Target    *ActionTarget `json:"target,omitempty"`
	Text      string        `json:"text,omitempty"`
	Key       string        `json:"key,omitempty"`
	Scroll    *ScrollDelta  `json:"scroll,omitempty"`
	Modifiers []KeyModifier `json:"modifiers,omitempty"`
}

// ClickOn builds a click on el, optionally chorded with modifiers.
func ClickOn(el Element, modifiers ...KeyModifier) Action {
	return Action{Type: ActionClick, Target: &ActionTarget{Element: el}, Modifiers: modifiers}
}

// ScrollOver builds a wheel scroll of dy pixels over el.
func ScrollOver(el Element, dy int) Action {
	return Action{Type: ActionScroll, Target: &ActionTarget{Element: el}, Scroll: &ScrollDelta{Y: dy, Unit: ScrollUnitPixels}}
}

// SessionConfig configures a browser session.
type SessionConfig struct {
	SessionID    string         `yaml:"session_id" json:"session_id"`
	InitialURL   string         `yaml:"initial_url" json:"initial_url,omitempty"`
	BrowserName  string         `yaml:"browser_name" json:"browser_name,omitempty"`
	Viewport     Viewport       `yaml:"viewport" json:"viewport"`
	Capabilities map[string]any `yaml:"capabilities" json:"capabilities,omitempty"`
}

// DefaultSessionConfig returns the recommended session defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		BrowserName: "chrome",
		Viewport: Viewport{
			Width:  1280,
			Height: 720,
		},
	}
}
