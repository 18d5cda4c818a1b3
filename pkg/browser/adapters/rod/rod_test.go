package rod

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

func TestConvertError(t *testing.T) {
	detached := &cdp.Error{Code: -32000, Message: "Node is detached from document"}
	err := convertError("text", fmt.Errorf("call: %w", detached))
	assert.True(t, browser.IsStale(err))
	assert.True(t, browser.IsRetryableError(err))

	missing := &cdp.Error{Code: -32000, Message: "Could not find node with given id"}
	assert.True(t, browser.IsStale(convertError("attr", missing)))

	bad := &cdp.Error{Code: -32000, Message: "'[[' is not a valid selector"}
	assert.ErrorIs(t, convertError("find", bad), browser.ErrInvalidSelector)

	js := &cdp.Error{Code: -32000, Message: "ReferenceError: foo is not defined"}
	assert.False(t, browser.IsRetryableError(convertError("eval", js)))

	assert.ErrorIs(t, convertError("dial", errors.New("websocket closed")), browser.ErrUnavailable)
	assert.Equal(t, context.Canceled, convertError("eval", context.Canceled))
	assert.NoError(t, convertError("ok", nil))
}

func TestWrapScript(t *testing.T) {
	got := wrapScript(browser.ScriptSetScrollTop)
	assert.Contains(t, got, "function() {")
	assert.Contains(t, got, "arguments[1]")
}

func TestSplitKeys(t *testing.T) {
	keys, ok := splitKeys("\ue015\ue015\ue007")
	require.True(t, ok)
	assert.Equal(t, []input.Key{input.ArrowDown, input.ArrowDown, input.Enter}, keys)

	_, ok = splitKeys("main.go")
	assert.False(t, ok)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{ControlURL: "ws://127.0.0.1:9222/devtools/browser/x"}.Validate())
	assert.Error(t, Config{ControlURL: "http://127.0.0.1:9222"}.Validate())

	_, err := NewRuntime(Config{ControlURL: "localhost"})
	assert.Error(t, err)
}
