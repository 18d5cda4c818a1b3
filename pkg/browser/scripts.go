package browser

import (
	"context"
	"fmt"
	"math"
)

// Function bodies shared by every adapter. arguments[0] is always the
// scroll container element.
const (
	ScriptScrollState = `var el = arguments[0];
return {scrollTop: el.scrollTop, scrollHeight: el.scrollHeight, clientHeight: el.clientHeight};`

	ScriptSetScrollTop = `var el = arguments[0];
el.scrollTop = arguments[1];
return el.scrollTop;`

	ScriptScrollBy = `var el = arguments[0];
el.scrollTop = el.scrollTop + arguments[1];
return el.scrollTop;`

	// ScriptScrollIntoView aligns arguments[0] with the top of its scroll parent.
	ScriptScrollIntoView = `arguments[0].scrollIntoView({block: "start"});
return true;`
)

// ScrollState is the vertical scroll geometry of a container.
type ScrollState struct {
	Top          int
	Height       int
	ClientHeight int
}

// ReadScrollState evaluates ScriptScrollState against container.
func ReadScrollState(ctx context.Context, d Driver, container Element) (ScrollState, error) {
	raw, err := d.ExecuteScript(ctx, ScriptScrollState, container)
	if err != nil {
		return ScrollState{}, err
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return ScrollState{}, fmt.Errorf("%w: scroll state is %T", ErrScriptResult, raw)
	}
	var st ScrollState
	for key, dst := range map[string]*int{
		"scrollTop":    &st.Top,
		"scrollHeight": &st.Height,
		"clientHeight": &st.ClientHeight,
	} {
		n, err := ToInt(m[key])
		if err != nil {
			return ScrollState{}, fmt.Errorf("scroll state %s: %w", key, err)
		}
		*dst = n
	}
	return st, nil
}

// SetScrollTop moves container to top and returns the position the page
// actually settled on.
func SetScrollTop(ctx context.Context, d Driver, container Element, top int) (int, error) {
	raw, err := d.ExecuteScript(ctx, ScriptSetScrollTop, container, top)
	if err != nil {
		return 0, err
	}
	return ToInt(raw)
}

// ToInt converts a JSON number returned by a script.
func ToInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(math.Round(n)), nil
	case float32:
		return int(math.Round(float64(n))), nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", ErrScriptResult, v)
}
