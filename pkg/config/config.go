// Package config loads ideprobe settings from YAML files and IDEPROBE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ierrors "github.com/odvcencio/ideprobe/pkg/errors"
	"github.com/odvcencio/ideprobe/pkg/timeout"
)

// Driver kinds.
const (
	DriverSim      = "sim"
	DriverSelenium = "selenium"
	DriverRod      = "rod"
)

// Config is the full configuration tree.
type Config struct {
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Polling  PollingConfig  `yaml:"polling"`
	Search   SearchConfig   `yaml:"search"`
	Driver   DriverConfig   `yaml:"driver"`
	Locators LocatorsConfig `yaml:"locators"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// TimeoutsConfig holds the deadlines of each kind of wait. Values accept
// "none", "0"/"once", Go durations or integer milliseconds.
type TimeoutsConfig struct {
	// Default bounds plain polling sessions.
	Default timeout.Deadline `yaml:"default"`
	// Find is the default deadline of explorer lookups by path.
	Find timeout.Deadline `yaml:"find"`
	// Page bounds the wait for a new window after a page turn.
	Page   timeout.Deadline `yaml:"page"`
	Expand timeout.Deadline `yaml:"expand"`
	Ready  timeout.Deadline `yaml:"ready"`
}

// PollingConfig paces retry sessions.
type PollingConfig struct {
	Interval  time.Duration `yaml:"interval"`
	Threshold time.Duration `yaml:"threshold"`
}

// SearchConfig bounds recovery inside scroll and tree searches.
type SearchConfig struct {
	MaxStaleRefetch   int `yaml:"max_stale_refetch"`
	MaxSegmentRetries int `yaml:"max_segment_retries"`
}

// DriverConfig selects and configures the browser adapter.
type DriverConfig struct {
	Kind        string `yaml:"kind"`
	RemoteURL   string `yaml:"remote_url"`
	ControlURL  string `yaml:"control_url"`
	BrowserName string `yaml:"browser_name"`
	Headless    bool   `yaml:"headless"`
	// Workspace lists the files served by the sim driver. A trailing "/"
	// marks an empty folder.
	Workspace []string `yaml:"workspace"`
	LoadPolls int      `yaml:"load_polls"`
}

// LocatorsConfig points at a locator table. Empty means the built-in Theia
// table.
type LocatorsConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// TracingConfig controls the development trace exporter.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeouts: TimeoutsConfig{
			Default: timeout.After(10 * time.Second),
			Find:    timeout.After(30 * time.Second),
			Page:    timeout.After(5 * time.Second),
			Expand:  timeout.After(5 * time.Second),
			Ready:   timeout.After(10 * time.Second),
		},
		Polling: PollingConfig{
			Interval: 50 * time.Millisecond,
		},
		Search: SearchConfig{
			MaxStaleRefetch:   5,
			MaxSegmentRetries: 5,
		},
		Driver: DriverConfig{
			Kind:        DriverSim,
			RemoteURL:   "http://localhost:4444/wd/hub",
			BrowserName: "chrome",
			Headless:    true,
		},
		Logging: LoggingConfig{Level: "info"},
		Tracing: TracingConfig{ServiceName: "ideprobe"},
	}
}

// Load builds the configuration from defaults, ~/.ideprobe/config.yaml,
// ./.ideprobe/config.yaml and the environment, in that order.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configEnv := loadConfigEnvVars()

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		userConfigPath := filepath.Join(home, ".ideprobe", "config.yaml")
		if err := loadAndMerge(cfg, userConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	projectConfigPath := filepath.Join(".", ".ideprobe", "config.yaml")
	if err := loadAndMerge(cfg, projectConfigPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := applyEnvOverrides(cfg, configEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	configEnv := loadConfigEnvVars()

	if err := loadAndMerge(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := applyEnvOverrides(cfg, configEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverridesForTest exposes env override logic for tests without file I/O.
func ApplyEnvOverridesForTest(cfg *Config) error {
	return applyEnvOverrides(cfg, nil)
}

// applyEnvOverrides applies IDEPROBE_* variables. The process environment
// wins over ~/.ideprobe/config.env.
func applyEnvOverrides(cfg *Config, configEnv map[string]string) error {
	get := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return configEnv[key]
	}

	deadlines := []struct {
		key    string
		target *timeout.Deadline
	}{
		{"IDEPROBE_TIMEOUT_DEFAULT", &cfg.Timeouts.Default},
		{"IDEPROBE_TIMEOUT_FIND", &cfg.Timeouts.Find},
		{"IDEPROBE_TIMEOUT_PAGE", &cfg.Timeouts.Page},
		{"IDEPROBE_TIMEOUT_EXPAND", &cfg.Timeouts.Expand},
		{"IDEPROBE_TIMEOUT_READY", &cfg.Timeouts.Ready},
	}
	for _, d := range deadlines {
		v := get(d.key)
		if v == "" {
			continue
		}
		parsed, err := timeout.Parse(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.target = parsed
	}

	if v := get("IDEPROBE_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return ierrors.Wrap(err, ierrors.ErrCodeConfigInvalid, "IDEPROBE_POLL_INTERVAL")
		}
		cfg.Polling.Interval = d
	}
	if v := get("IDEPROBE_MAX_SEGMENT_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ierrors.Wrap(err, ierrors.ErrCodeConfigInvalid, "IDEPROBE_MAX_SEGMENT_RETRIES")
		}
		cfg.Search.MaxSegmentRetries = n
	}
	if v := get("IDEPROBE_DRIVER"); v != "" {
		cfg.Driver.Kind = v
	}
	if v := get("IDEPROBE_REMOTE_URL"); v != "" {
		cfg.Driver.RemoteURL = v
	}
	if v := get("IDEPROBE_CONTROL_URL"); v != "" {
		cfg.Driver.ControlURL = v
	}
	if v := get("IDEPROBE_BROWSER"); v != "" {
		cfg.Driver.BrowserName = v
	}
	if val, ok := envBool(get("IDEPROBE_HEADLESS")); ok {
		cfg.Driver.Headless = val
	}
	if v := get("IDEPROBE_LOCATORS"); v != "" {
		cfg.Locators.Path = v
	}
	if v := get("IDEPROBE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if val, ok := envBool(get("IDEPROBE_TRACING")); ok {
		cfg.Tracing.Enabled = val
	}
	return nil
}

func envBool(val string) (bool, bool) {
	if val == "" {
		return false, false
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	var errs []error
	if c.Polling.Interval < 0 {
		errs = append(errs, fmt.Errorf("polling.interval must be zero or positive, got %s", c.Polling.Interval))
	}
	if c.Polling.Threshold < 0 {
		errs = append(errs, fmt.Errorf("polling.threshold must be zero or positive, got %s", c.Polling.Threshold))
	}
	if c.Search.MaxStaleRefetch < 0 {
		errs = append(errs, errors.New("search.max_stale_refetch must be zero or positive"))
	}
	if c.Search.MaxSegmentRetries < 0 {
		errs = append(errs, errors.New("search.max_segment_retries must be zero or positive"))
	}

	switch strings.ToLower(strings.TrimSpace(c.Driver.Kind)) {
	case DriverSim:
		if c.Driver.LoadPolls < 0 {
			errs = append(errs, errors.New("driver.load_polls must be zero or positive"))
		}
	case DriverSelenium:
		if strings.TrimSpace(c.Driver.RemoteURL) == "" {
			errs = append(errs, errors.New("driver.remote_url is required for the selenium driver"))
		}
	case DriverRod:
	default:
		errs = append(errs, fmt.Errorf("invalid driver kind: %s (valid: sim, selenium, rod)", c.Driver.Kind))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid logging level: %s (valid: debug, info, warn, error)", c.Logging.Level))
	}

	if len(errs) == 0 {
		return nil
	}
	return ierrors.Wrap(errors.Join(errs...), ierrors.ErrCodeConfigInvalid, "invalid configuration")
}

func loadConfigEnvVars() map[string]string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(home, ".ideprobe", "config.env"))
	if err != nil {
		return nil
	}

	vars := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		vars[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	return vars
}
