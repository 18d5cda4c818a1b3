package sim

import (
	"errors"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

// Config controls the simulated explorer.
type Config struct {
	// RowHeight is the pixel height of one tree row.
	RowHeight int
	// VisibleRows is how many rows fit the scroll container.
	VisibleRows int
	// Overscan rows are rendered past the viewport but not displayed.
	Overscan int
	// LoadPolls keeps a folder's children hidden behind a busy indicator
	// for this many element lookups after its first expansion.
	LoadPolls int

	Metrics *browser.Metrics
}

// DefaultConfig returns the default simulator configuration.
func DefaultConfig() Config {
	return Config{
		RowHeight:   22,
		VisibleRows: 10,
		Overscan:    2,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RowHeight != 0 {
		defaults.RowHeight = c.RowHeight
	}
	if c.VisibleRows != 0 {
		defaults.VisibleRows = c.VisibleRows
	}
	if c.Overscan != 0 {
		defaults.Overscan = c.Overscan
	}
	defaults.LoadPolls = c.LoadPolls
	defaults.Metrics = c.Metrics
	return defaults
}

// Validate checks whether the config is usable.
func (c Config) Validate() error {
	if c.RowHeight <= 0 {
		return errors.New("row_height must be greater than zero")
	}
	if c.VisibleRows <= 0 {
		return errors.New("visible_rows must be greater than zero")
	}
	if c.Overscan < 0 || c.LoadPolls < 0 {
		return errors.New("overscan and load_polls must be zero or positive")
	}
	return nil
}
