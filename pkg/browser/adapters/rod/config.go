package rod

import (
	"errors"
	"strings"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

// Config controls how the adapter reaches Chrome.
type Config struct {
	// ControlURL is a DevTools websocket URL. When empty a local browser is
	// launched.
	ControlURL string
	Headless   bool
	// Bin overrides the browser binary used by the launcher.
	Bin     string
	Metrics *browser.Metrics
}

// DefaultConfig launches a local headless browser.
func DefaultConfig() Config {
	return Config{Headless: true}
}

// Validate checks whether the config is usable.
func (c Config) Validate() error {
	url := strings.TrimSpace(c.ControlURL)
	if url != "" && !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return errors.New("control_url must be a ws(s) URL")
	}
	return nil
}
