package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// QueryAll returns all elements matching a simple CSS selector.
// Supported subset:
//   - tag: "button", "div"
//   - .class: ".card"
//   - #id: "#hero"
//   - tag.class: "div.card"
//   - tag#id: "div#hero"
//   - tag[attr]: "div[data-uid]"
//   - tag[attr=val]: "div[role=main]"
//   - parts separated by space (descendant combinator)
func QueryAll(root *html.Node, selector string) []*html.Node {
	parts := strings.Fields(selector)
	if len(parts) == 0 {
		return nil
	}

	matches := matchSimple(root, parts[0])

	for i := 1; i < len(parts); i++ {
		var next []*html.Node
		for _, parent := range matches {
			for c := parent.FirstChild; c != nil; c = c.NextSibling {
				next = append(next, matchSimple(c, parts[i])...)
			}
		}
		matches = next
	}

	return matches
}

// Query returns the first element matching the selector, or nil.
func Query(root *html.Node, selector string) *html.Node {
	matches := QueryAll(root, selector)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// matchSimple finds all nodes in root's subtree (root included) matching a
// single selector part.
func matchSimple(root *html.Node, sel string) []*html.Node {
	m := parseSimpleSelector(sel)
	var results []*html.Node
	Walk(root, func(n *html.Node) bool {
		if matchesSelector(n, m) {
			results = append(results, n)
		}
		return true
	})
	return results
}

type simpleSelector struct {
	tag     string
	id      string
	class   string
	attrKey string
	attrVal string
}

// parseSimpleSelector parses "tag.class", "#id", "tag[attr=val]", etc.
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.attrKey = attrPart[:eqIdx]
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.class = sel[idx+1:]
		sel = sel[:idx]
	}

	s.tag = sel
	return s
}

func matchesSelector(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}

	if s.tag != "" && n.Data != s.tag {
		return false
	}

	if s.id != "" && GetAttr(n, "id") != s.id {
		return false
	}

	if s.class != "" {
		found := false
		for _, c := range ClassList(n) {
			if c == s.class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if s.attrKey != "" {
		if s.attrVal != "" {
			if GetAttr(n, s.attrKey) != s.attrVal {
				return false
			}
		} else if !HasAttr(n, s.attrKey) {
			return false
		}
	}

	return true
}
