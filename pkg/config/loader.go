package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	ierrors "github.com/odvcencio/ideprobe/pkg/errors"
)

// loadAndMerge loads a YAML file and merges it into the config.
func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return ierrors.Wrap(err, ierrors.ErrCodeConfigParse, "parsing YAML")
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return ierrors.Wrap(err, ierrors.ErrCodeConfigParse, "parsing YAML")
	}

	mergeConfigs(cfg, &override, raw)
	return nil
}

// mergeConfigs merges override into base. Fields whose zero value is
// meaningful (deadlines, booleans, counts) are only taken when the key is
// present in raw.
func mergeConfigs(base, override *Config, raw map[string]any) {
	if override == nil {
		return
	}

	if fieldSet(raw, "timeouts", "default") {
		base.Timeouts.Default = override.Timeouts.Default
	}
	if fieldSet(raw, "timeouts", "find") {
		base.Timeouts.Find = override.Timeouts.Find
	}
	if fieldSet(raw, "timeouts", "page") {
		base.Timeouts.Page = override.Timeouts.Page
	}
	if fieldSet(raw, "timeouts", "expand") {
		base.Timeouts.Expand = override.Timeouts.Expand
	}
	if fieldSet(raw, "timeouts", "ready") {
		base.Timeouts.Ready = override.Timeouts.Ready
	}

	if fieldSet(raw, "polling", "interval") {
		base.Polling.Interval = override.Polling.Interval
	}
	if fieldSet(raw, "polling", "threshold") {
		base.Polling.Threshold = override.Polling.Threshold
	}

	if fieldSet(raw, "search", "max_stale_refetch") {
		base.Search.MaxStaleRefetch = override.Search.MaxStaleRefetch
	}
	if fieldSet(raw, "search", "max_segment_retries") {
		base.Search.MaxSegmentRetries = override.Search.MaxSegmentRetries
	}

	if strings.TrimSpace(override.Driver.Kind) != "" {
		base.Driver.Kind = override.Driver.Kind
	}
	if override.Driver.RemoteURL != "" {
		base.Driver.RemoteURL = override.Driver.RemoteURL
	}
	if override.Driver.ControlURL != "" {
		base.Driver.ControlURL = override.Driver.ControlURL
	}
	if override.Driver.BrowserName != "" {
		base.Driver.BrowserName = override.Driver.BrowserName
	}
	if fieldSet(raw, "driver", "headless") {
		base.Driver.Headless = override.Driver.Headless
	}
	if len(override.Driver.Workspace) > 0 {
		base.Driver.Workspace = append([]string(nil), override.Driver.Workspace...)
	}
	if fieldSet(raw, "driver", "load_polls") {
		base.Driver.LoadPolls = override.Driver.LoadPolls
	}

	if override.Locators.Path != "" {
		base.Locators.Path = override.Locators.Path
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if fieldSet(raw, "tracing", "enabled") {
		base.Tracing.Enabled = override.Tracing.Enabled
	}
	if override.Tracing.ServiceName != "" {
		base.Tracing.ServiceName = override.Tracing.ServiceName
	}
}

func fieldSet(raw map[string]any, path ...string) bool {
	if len(path) == 0 || raw == nil {
		return false
	}
	current := any(raw)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		val, ok := m[key]
		if !ok {
			return false
		}
		current = val
	}
	return true
}

// String renders the effective configuration as YAML.
func (c *Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(out)
}
