package browser

import "context"

//go:generate mockgen -package=browser -destination=mock_driver_test.go github.com/odvcencio/ideprobe/pkg/browser Driver,Element

// Element is a handle to a remote DOM node. Every method is a round trip
// and may fail with a stale-element error once the node is re-rendered.
type Element interface {
	ID() string
	FindElement(ctx context.Context, by Locator) (Element, error)
	FindElements(ctx context.Context, by Locator) ([]Element, error)
	Attribute(ctx context.Context, name string) (string, error)
	Text(ctx context.Context) (string, error)
	IsDisplayed(ctx context.Context) (bool, error)
	Size(ctx context.Context) (Size, error)
	Location(ctx context.Context) (Point, error)
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, keys string) error
}

// Driver is the page-level port implemented by browser adapters.
type Driver interface {
	FindElement(ctx context.Context, by Locator) (Element, error)
	FindElements(ctx context.Context, by Locator) ([]Element, error)
	// ExecuteScript runs a function body in the page. Element arguments are
	// passed as DOM nodes.
	ExecuteScript(ctx context.Context, script string, args ...any) (any, error)
	Perform(ctx context.Context, actions ...Action) error
}

// Runtime manages browser sessions.
type Runtime interface {
	NewSession(ctx context.Context, cfg SessionConfig) (Session, error)
	Close() error
}

// Session is a driver bound to one remote browser.
type Session interface {
	Driver
	ID() string
	Navigate(ctx context.Context, url string) error
	Close() error
}
