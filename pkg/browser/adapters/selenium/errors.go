package selenium

import (
	"errors"

	"github.com/tebeka/selenium"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

// convertError maps WebDriver protocol errors onto browser.DriverError so
// that callers can match the browser sentinels.
func convertError(message string, err error) error {
	if err == nil {
		return nil
	}
	var se *selenium.Error
	if errors.As(err, &se) {
		return browser.WrapDriverError(se.Err, message+": "+se.Message, err)
	}
	return browser.WrapDriverError(browser.CodeUnavailable, message, err)
}

func by(l browser.Locator) (string, string) {
	switch l.Using {
	case browser.UsingXPath:
		return selenium.ByXPATH, l.Value
	case browser.UsingID:
		return selenium.ByID, l.Value
	}
	return selenium.ByCSSSelector, l.Value
}

var modifierKeys = map[browser.KeyModifier]string{
	browser.KeyModifierShift: selenium.ShiftKey,
	browser.KeyModifierAlt:   selenium.AltKey,
	browser.KeyModifierCtrl:  selenium.ControlKey,
	browser.KeyModifierMeta:  selenium.MetaKey,
}

func modifiers(mods []browser.KeyModifier) (string, error) {
	var keys string
	for _, m := range mods {
		k, ok := modifierKeys[m]
		if !ok {
			return "", browser.NewDriverError("invalid argument", "unknown modifier "+string(m))
		}
		keys += k
	}
	return keys, nil
}
