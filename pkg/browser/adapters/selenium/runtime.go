// Package selenium adapts a W3C WebDriver server to the browser package.
package selenium

import (
	"context"
	"errors"
	"strings"

	"github.com/tebeka/selenium"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

// Runtime opens sessions on a remote WebDriver server.
type Runtime struct {
	cfg Config
}

// NewRuntime creates a WebDriver runtime adapter.
func NewRuntime(cfg Config) (*Runtime, error) {
	merged := cfg.withDefaults()
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &Runtime{cfg: merged}, nil
}

// Capabilities builds the new-session capabilities for cfg.
func (r *Runtime) Capabilities(cfg browser.SessionConfig) selenium.Capabilities {
	caps := selenium.Capabilities{"browserName": r.cfg.BrowserName}
	if cfg.BrowserName != "" {
		caps["browserName"] = cfg.BrowserName
	}
	for k, v := range cfg.Capabilities {
		caps[k] = v
	}
	return caps
}

// NewSession starts a remote session and loads the initial URL.
func (r *Runtime) NewSession(ctx context.Context, cfg browser.SessionConfig) (browser.Session, error) {
	if r == nil {
		return nil, browser.ErrUnavailable
	}
	if strings.TrimSpace(cfg.SessionID) == "" {
		return nil, errors.New("session_id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wd, err := selenium.NewRemote(r.Capabilities(cfg), r.cfg.RemoteURL)
	if err != nil {
		return nil, convertError("new session", err)
	}
	if r.cfg.ImplicitWait > 0 {
		if err := wd.SetImplicitWaitTimeout(r.cfg.ImplicitWait); err != nil {
			_ = wd.Quit()
			return nil, convertError("implicit wait", err)
		}
	}
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		if err := wd.ResizeWindow("", cfg.Viewport.Width, cfg.Viewport.Height); err != nil {
			_ = wd.Quit()
			return nil, convertError("resize window", err)
		}
	}
	s := &Session{id: cfg.SessionID, wd: wd, metrics: r.cfg.Metrics}
	if cfg.InitialURL != "" {
		if err := s.Navigate(ctx, cfg.InitialURL); err != nil {
			_ = wd.Quit()
			return nil, err
		}
	}
	return s, nil
}

// Close releases runtime resources.
func (r *Runtime) Close() error {
	return nil
}
