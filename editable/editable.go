// Package editable decides which elements of a screen are editable, stamps
// them with stable uids, and classifies them for the editor UI. uid
// assignment runs exactly once per edit session, before the first patch is
// recorded; the uids it writes are the addressing scheme every patch and
// selection message relies on.
package editable

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dukes-snr/EazyUi-sub001/dom"
	"github.com/dukes-snr/EazyUi-sub001/idgen"
)

// allowedTags is the fixed allow-list of structural and interactive tags
// that receive uids. Text-level inline tags like <b> stay unaddressed; edits
// target their nearest listed ancestor.
var allowedTags = map[atom.Atom]bool{
	atom.Div: true, atom.Section: true, atom.Main: true, atom.Header: true,
	atom.Footer: true, atom.Nav: true, atom.Aside: true, atom.Article: true,
	atom.Form: true, atom.Fieldset: true,
	atom.Button: true, atom.A: true, atom.Input: true, atom.Textarea: true,
	atom.Select: true, atom.Label: true,
	atom.Img: true, atom.Svg: true, atom.Picture: true, atom.Video: true,
	atom.Span: true, atom.P: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.Table: true, atom.Thead: true, atom.Tbody: true, atom.Tr: true,
	atom.Td: true, atom.Th: true,
	atom.I: true, atom.Em: true, atom.Strong: true, atom.Small: true,
}

// IsAllowed reports whether the element's tag is on the uid allow-list.
func IsAllowed(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && allowedTags[n.DataAtom]
}

// IsEditable reports whether the node is an editable element: it carries a
// uid. Presence of the uid attribute is the editable marker.
func IsEditable(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && dom.HasAttr(n, dom.UIDAttr)
}

// EnsureUIDs stamps every allow-listed element lacking a uid with a fresh
// token and returns the re-serialized document plus the number of uids
// assigned. Idempotent: elements that already carry a uid are untouched, so
// a second pass assigns nothing and returns byte-identical output.
//
// Malformed or fragment input degrades to whatever root normalization
// produces; it never fails.
func EnsureUIDs(content string, gen idgen.Generator) (string, int) {
	if gen == nil {
		gen = idgen.ElementUID
	}
	doc := dom.ParseLenient(content)
	assigned := EnsureTreeUIDs(doc, gen)
	out, err := dom.Render(doc)
	if err != nil {
		// Render of a parsed tree only fails on exotic node types that
		// Parse never produces; fall back to the input untouched.
		return content, 0
	}
	return out, assigned
}

// EnsureTreeUIDs stamps uids in-place on an already-parsed tree and returns
// the number assigned. The agent uses it for lazy breadcrumb assignment.
func EnsureTreeUIDs(root *html.Node, gen idgen.Generator) int {
	if gen == nil {
		gen = idgen.ElementUID
	}
	assigned := 0
	dom.Walk(root, func(n *html.Node) bool {
		if IsAllowed(n) && !dom.HasAttr(n, dom.UIDAttr) {
			dom.SetAttr(n, dom.UIDAttr, gen())
			assigned++
		}
		return true
	})
	return assigned
}

// EnsureUID stamps a single element if it is allow-listed and unmarked,
// returning its uid ("" for elements that cannot be editable).
func EnsureUID(n *html.Node, gen idgen.Generator) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	if uid := dom.UID(n); uid != "" {
		return uid
	}
	if !IsAllowed(n) {
		return ""
	}
	if gen == nil {
		gen = idgen.ElementUID
	}
	uid := gen()
	dom.SetAttr(n, dom.UIDAttr, uid)
	return uid
}

// Class is the coarse element classification surfaced to the editor UI.
type Class string

const (
	ClassText      Class = "text"
	ClassButton    Class = "button"
	ClassImage     Class = "image"
	ClassContainer Class = "container"
	ClassInput     Class = "input"
	ClassIcon      Class = "icon"
	ClassBadge     Class = "badge"
)

// Classify buckets an element by tag and class hints. First match wins.
func Classify(n *html.Node) Class {
	if n == nil || n.Type != html.ElementNode {
		return ClassContainer
	}

	switch n.DataAtom {
	case atom.Input, atom.Textarea, atom.Select:
		return ClassInput
	case atom.Button:
		return ClassButton
	case atom.Img, atom.Picture, atom.Video:
		return ClassImage
	case atom.Svg:
		return ClassIcon
	}

	if hasClassHint(n, "icon") || n.DataAtom == atom.I && dom.Text(n) == "" {
		return ClassIcon
	}
	if hasClassHint(n, "badge", "tag", "pill", "chip") {
		return ClassBadge
	}
	if n.DataAtom == atom.A {
		return ClassButton
	}

	switch n.DataAtom {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Label, atom.Li, atom.Em, atom.Strong, atom.Small:
		return ClassText
	}

	if hasElementChildren(n) {
		return ClassContainer
	}
	if dom.Text(n) != "" {
		return ClassText
	}
	return ClassContainer
}

func hasClassHint(n *html.Node, hints ...string) bool {
	for _, c := range dom.ClassList(n) {
		lc := strings.ToLower(c)
		for _, h := range hints {
			if strings.Contains(lc, h) {
				return true
			}
		}
	}
	return false
}

func hasElementChildren(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}
