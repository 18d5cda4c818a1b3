// Package rod adapts Chrome DevTools, through go-rod, to the browser
// package.
package rod

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

// Runtime owns one browser connection and opens a tab per session.
type Runtime struct {
	cfg Config

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// NewRuntime creates a DevTools runtime adapter. The browser is connected
// lazily on the first session.
func NewRuntime(cfg Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runtime{cfg: cfg}, nil
}

func (r *Runtime) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}
	url := strings.TrimSpace(r.cfg.ControlURL)
	if url == "" {
		l := launcher.New().Headless(r.cfg.Headless)
		if r.cfg.Bin != "" {
			l = l.Bin(r.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, browser.WrapDriverError(browser.CodeUnavailable, "launch browser", err)
		}
		r.launcher = l
		url = u
	}
	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		return nil, browser.WrapDriverError(browser.CodeUnavailable, "connect", err)
	}
	r.browser = b
	return b, nil
}

// NewSession opens a tab sized to the configured viewport.
func (r *Runtime) NewSession(ctx context.Context, cfg browser.SessionConfig) (browser.Session, error) {
	if r == nil {
		return nil, browser.ErrUnavailable
	}
	if strings.TrimSpace(cfg.SessionID) == "" {
		return nil, errors.New("session_id is required")
	}
	b, err := r.connect()
	if err != nil {
		return nil, err
	}
	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, convertError("create target", err)
	}
	page = page.Context(context.Background())
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.Viewport.Width,
			Height:            cfg.Viewport.Height,
			DeviceScaleFactor: 1.0,
		})
		if err != nil {
			_ = page.Close()
			return nil, convertError("set viewport", err)
		}
	}
	s := &Session{id: cfg.SessionID, page: page, metrics: r.cfg.Metrics}
	if cfg.InitialURL != "" {
		if err := s.Navigate(ctx, cfg.InitialURL); err != nil {
			_ = page.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close disconnects and, when this runtime launched the browser, kills it.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher.Cleanup()
		r.launcher = nil
	}
	return err
}
