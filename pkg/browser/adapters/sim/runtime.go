// Package sim is an in-memory browser that renders an IDE file explorer
// as a virtualized tree. Element handles behave like WebDriver references:
// they go stale when their row is unmounted.
package sim

import (
	"context"
	"errors"
	"strings"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

// Runtime creates simulated sessions over one workspace.
type Runtime struct {
	cfg Config
	ws  *Workspace
}

// NewRuntime creates a simulator runtime.
func NewRuntime(ws *Workspace, cfg Config) (*Runtime, error) {
	merged := cfg.withDefaults()
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if ws == nil {
		ws = NewWorkspace()
	}
	return &Runtime{cfg: merged, ws: ws}, nil
}

// NewSession opens a session showing the workspace with every folder
// collapsed.
func (r *Runtime) NewSession(ctx context.Context, cfg browser.SessionConfig) (browser.Session, error) {
	if r == nil {
		return nil, browser.ErrUnavailable
	}
	if strings.TrimSpace(cfg.SessionID) == "" {
		return nil, errors.New("session_id is required")
	}
	s := newSession(cfg.SessionID, r.ws, r.cfg)
	if cfg.InitialURL != "" {
		if err := s.Navigate(ctx, cfg.InitialURL); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close releases runtime resources.
func (r *Runtime) Close() error {
	return nil
}
