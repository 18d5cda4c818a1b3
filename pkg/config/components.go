package config

import (
	"fmt"
	"strings"

	"github.com/odvcencio/ideprobe/pkg/browser"
	"github.com/odvcencio/ideprobe/pkg/browser/adapters/rod"
	"github.com/odvcencio/ideprobe/pkg/browser/adapters/selenium"
	"github.com/odvcencio/ideprobe/pkg/browser/adapters/sim"
	"github.com/odvcencio/ideprobe/pkg/explorer"
	"github.com/odvcencio/ideprobe/pkg/locators"
	"github.com/odvcencio/ideprobe/pkg/observability"
	"github.com/odvcencio/ideprobe/pkg/retry"
	"github.com/odvcencio/ideprobe/pkg/scroll"
	"github.com/odvcencio/ideprobe/pkg/telemetry"
	"github.com/odvcencio/ideprobe/pkg/tree"
)

// Logger returns a logger for component at the configured level.
func (c *Config) Logger(component string) *observability.Logger {
	return observability.NewLogger(component, observability.ParseLevel(c.Logging.Level))
}

// TracerProvider installs the stdout trace exporter when tracing is
// enabled. It returns nil otherwise.
func (c *Config) TracerProvider() (*observability.TracerProvider, error) {
	if !c.Tracing.Enabled {
		return nil, nil
	}
	return observability.NewTracerProvider(c.Tracing.ServiceName)
}

// RetryOptions returns polling options bounded by timeouts.default.
func (c *Config) RetryOptions(id string, logger *observability.Logger, hub *telemetry.Hub) retry.Options {
	return retry.Options{
		Timeout:   c.Timeouts.Default,
		Threshold: c.Polling.Threshold,
		ID:        id,
		Interval:  c.Polling.Interval,
		Logger:    logger,
		Hub:       hub,
	}
}

// ScrollOptions returns list widget options.
func (c *Config) ScrollOptions(id string, logger *observability.Logger, hub *telemetry.Hub) scroll.Options {
	return scroll.Options{
		ID:              id,
		PageTimeout:     c.Timeouts.Page,
		Interval:        c.Polling.Interval,
		MaxStaleRefetch: c.Search.MaxStaleRefetch,
		Logger:          logger,
		Hub:             hub,
	}
}

// TreeOptions returns tree widget options. The sibling order is left to
// the caller.
func (c *Config) TreeOptions(id string, logger *observability.Logger, hub *telemetry.Hub) tree.Options {
	return tree.Options{
		Options:           c.ScrollOptions(id, logger, hub),
		ReadyTimeout:      c.Timeouts.Ready,
		ExpandTimeout:     c.Timeouts.Expand,
		MaxSegmentRetries: c.Search.MaxSegmentRetries,
	}
}

// ExplorerOptions returns file explorer options.
func (c *Config) ExplorerOptions(logger *observability.Logger, hub *telemetry.Hub) explorer.Options {
	return explorer.Options{
		Tree: c.TreeOptions("explorer", logger, hub),
		Find: c.Timeouts.Find,
	}
}

// LocatorTable loads the configured locator table.
func (c *Config) LocatorTable() (locators.Table, error) {
	return locators.Load(c.Locators.Path)
}

// NewRuntime builds the configured browser runtime.
func (c *Config) NewRuntime(metrics *browser.Metrics) (browser.Runtime, error) {
	var (
		rt  browser.Runtime
		err error
	)
	switch strings.ToLower(strings.TrimSpace(c.Driver.Kind)) {
	case DriverSim:
		rt, err = runtimeOf(sim.NewRuntime(sim.NewWorkspace(c.Driver.Workspace...), sim.Config{
			LoadPolls: c.Driver.LoadPolls,
			Metrics:   metrics,
		}))
	case DriverSelenium:
		rt, err = runtimeOf(selenium.NewRuntime(selenium.Config{
			RemoteURL:   c.Driver.RemoteURL,
			BrowserName: c.Driver.BrowserName,
			Metrics:     metrics,
		}))
	case DriverRod:
		rt, err = runtimeOf(rod.NewRuntime(rod.Config{
			ControlURL: c.Driver.ControlURL,
			Headless:   c.Driver.Headless,
			Metrics:    metrics,
		}))
	default:
		err = fmt.Errorf("invalid driver kind: %s", c.Driver.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("driver %s: %w", c.Driver.Kind, err)
	}
	return rt, nil
}

func runtimeOf[R browser.Runtime](rt R, err error) (browser.Runtime, error) {
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// SessionConfig returns session defaults for the configured browser.
func (c *Config) SessionConfig(sessionID string) browser.SessionConfig {
	sc := browser.DefaultSessionConfig()
	sc.SessionID = sessionID
	if c.Driver.BrowserName != "" {
		sc.BrowserName = c.Driver.BrowserName
	}
	return sc
}
