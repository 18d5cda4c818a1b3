package rod

import (
	"context"
	"errors"
	"strings"

	"github.com/go-rod/rod/lib/cdp"

	"github.com/odvcencio/ideprobe/pkg/browser"
)

// DevTools reports detached or collected nodes through these messages.
var staleMessages = []string{
	"could not find node with given id",
	"node is detached from document",
	"no node with given id found",
	"cannot find context with specified id",
	"could not find object with given id",
}

// convertError maps DevTools failures onto browser.DriverError codes.
func convertError(message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ce *cdp.Error
	if errors.As(err, &ce) {
		lower := strings.ToLower(ce.Message)
		for _, m := range staleMessages {
			if strings.Contains(lower, m) {
				return browser.WrapDriverError(browser.CodeStaleElement, message, err)
			}
		}
		if strings.Contains(lower, "is not a valid selector") || strings.Contains(lower, "not a valid xpath") {
			return browser.WrapDriverError(browser.CodeInvalidSelector, message, err)
		}
		return browser.WrapDriverError("javascript error", message, err)
	}
	return browser.WrapDriverError(browser.CodeUnavailable, message, err)
}

// wrapScript turns a WebDriver style function body into a function
// expression, so arguments[n] keeps working.
func wrapScript(body string) string {
	return "function() {\n" + body + "\n}"
}
