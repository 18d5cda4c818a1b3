package selenium

import (
	"errors"
	"strings"
	"time"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

// Config controls how the adapter reaches a WebDriver server.
type Config struct {
	// RemoteURL is the WebDriver endpoint, e.g. http://localhost:4444/wd/hub.
	RemoteURL    string
	BrowserName  string
	ImplicitWait time.Duration
	Metrics      *browser.Metrics
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		RemoteURL:   "http://localhost:4444/wd/hub",
		BrowserName: "chrome",
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.RemoteURL) != "" {
		defaults.RemoteURL = c.RemoteURL
	}
	if strings.TrimSpace(c.BrowserName) != "" {
		defaults.BrowserName = c.BrowserName
	}
	defaults.ImplicitWait = c.ImplicitWait
	defaults.Metrics = c.Metrics
	return defaults
}

// Validate checks whether the config is usable.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.RemoteURL, "http://") && !strings.HasPrefix(c.RemoteURL, "https://") {
		return errors.New("remote_url must be an http(s) URL")
	}
	if c.ImplicitWait < 0 {
		return errors.New("implicit_wait must be zero or positive")
	}
	return nil
}
