// Package locators holds the selector tables page objects are built from,
// so that a UI change is a YAML edit rather than a code change.
package locators

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

// Table is the root of a locator file.
type Table struct {
	Explorer Explorer `yaml:"explorer"`
}

// Explorer locates the parts of a file explorer. Row-relative locators
// (Label, Toggle) are resolved inside a row.
type Explorer struct {
	Container browser.Locator `yaml:"container"`
	Rows      browser.Locator `yaml:"rows"`
	Label     browser.Locator `yaml:"label"`
	Toggle    browser.Locator `yaml:"toggle"`
	Busy      browser.Locator `yaml:"busy"`
	Selected  browser.Locator `yaml:"selected"`

	Attributes Attributes `yaml:"attributes"`
}

// Attributes names the row attributes the explorer reads.
type Attributes struct {
	Path       string `yaml:"path"`
	Kind       string `yaml:"kind"`
	FolderKind string `yaml:"folder_kind"`
	Level      string `yaml:"level"`
	Expanded   string `yaml:"expanded"`
	Index      string `yaml:"index"`
	Separator  string `yaml:"separator"`
}

// Theia returns the table for the Theia/VS Code style explorer.
func Theia() Table {
	return Table{
		Explorer: Explorer{
			Container: browser.ByCSS(".theia-TreeContainer"),
			Rows:      browser.ByCSS(".theia-TreeNode"),
			Label:     browser.ByCSS(".theia-TreeNodeSegment"),
			Toggle:    browser.ByCSS(".theia-ExpansionToggle"),
			Busy:      browser.ByCSS(".theia-TreeContainer-busy"),
			Selected:  browser.ByCSS(".theia-TreeNode.theia-mod-selected"),
			Attributes: Attributes{
				Path:       "data-node-path",
				Kind:       "data-node-kind",
				FolderKind: "folder",
				Level:      "aria-level",
				Expanded:   "aria-expanded",
				Index:      "data-index",
				Separator:  "/",
			},
		},
	}
}

// Parse decodes a locator file over the Theia defaults, so a file only
// lists what differs.
func Parse(data []byte) (Table, error) {
	t := Theia()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("parsing locators: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Load reads a locator file. An empty path returns the defaults.
func Load(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return Theia(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("loading locators from %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks that every locator the explorer needs is set.
func (t Table) Validate() error {
	e := t.Explorer
	var errs []error
	for name, l := range map[string]browser.Locator{
		"container": e.Container,
		"rows":      e.Rows,
		"label":     e.Label,
		"toggle":    e.Toggle,
		"busy":      e.Busy,
		"selected":  e.Selected,
	} {
		if l.IsZero() {
			errs = append(errs, fmt.Errorf("explorer.%s is required", name))
		}
	}
	if e.Attributes.Path == "" {
		errs = append(errs, errors.New("explorer.attributes.path is required"))
	}
	if e.Attributes.Separator == "" {
		errs = append(errs, errors.New("explorer.attributes.separator is required"))
	}
	return errors.Join(errs...)
}
