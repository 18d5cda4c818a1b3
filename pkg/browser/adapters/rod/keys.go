package rod

import (
	"github.com/go-rod/rod/lib/input"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

// WebDriver key codepoints mapped to DevTools keys.
var webDriverKeys = map[rune]input.Key{
	'\ue003': input.Backspace,
	'\ue004': input.Tab,
	'\ue007': input.Enter,
	'\ue00c': input.Escape,
	'\ue00d': input.Space,
	'\ue011': input.Home,
	'\ue010': input.End,
	'\ue012': input.ArrowLeft,
	'\ue013': input.ArrowUp,
	'\ue014': input.ArrowRight,
	'\ue015': input.ArrowDown,
	'\ue00e': input.PageUp,
	'\ue00f': input.PageDown,
}

var modifierKeys = map[browser.KeyModifier]input.Key{
	browser.KeyModifierShift: input.ShiftLeft,
	browser.KeyModifierAlt:   input.AltLeft,
	browser.KeyModifierCtrl:  input.ControlLeft,
	browser.KeyModifierMeta:  input.MetaLeft,
}

// splitKeys separates special keys from literal text. ok is false when keys
// contains text that has to be inserted rather than pressed.
func splitKeys(keys string) (pressed []input.Key, ok bool) {
	for _, r := range keys {
		k, special := webDriverKeys[r]
		if !special {
			return nil, false
		}
		pressed = append(pressed, k)
	}
	return pressed, true
}
