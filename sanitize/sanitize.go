// Package sanitize scrubs generated screen HTML before it enters edit mode.
// Scripts, event handlers and javascript: URLs never reach the sandbox; the
// attributes the editor depends on (class, inline style, data-uid) survive.
package sanitize

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var uidPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Policy builds the screen policy. Based on the UGC baseline, widened to the
// structural and form elements screens are built from. Inline style values
// are CSS-sanitized by bluemonday, not passed through raw.
func Policy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()

	p.AllowElements(
		"main", "header", "footer", "nav", "aside", "section", "article",
		"form", "fieldset", "button", "label", "input", "textarea", "select",
		"option", "span", "picture", "video", "source", "small",
	)
	p.AllowAttrs("type", "name", "value", "placeholder", "checked", "disabled").OnElements("input", "button", "textarea", "select")
	p.AllowAttrs("for").OnElements("label")
	p.AllowAttrs("value", "selected").OnElements("option")
	p.AllowAttrs("poster", "controls").OnElements("video")
	p.AllowAttrs("srcset", "media").OnElements("source")

	p.AllowAttrs("class").Globally()
	p.AllowAttrs("style").Globally()
	p.AllowAttrs("data-uid").Matching(uidPattern).Globally()
	p.AllowStandardURLs()
	p.AllowImages()
	p.AllowLists()
	p.AllowTables()

	return p
}

var defaultPolicy = Policy()

// HTML sanitizes a document with the default screen policy.
func HTML(content string) string {
	return defaultPolicy.Sanitize(content)
}
