// Package dom provides the HTML document plumbing shared by the live editor
// agent and the host-side replay engine: parsing and rendering via
// golang.org/x/net/html, uid-based node lookup, index paths for raw pointer
// targets, inline-style merging, and the two patch mutator implementations.
package dom

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// UIDAttr is the attribute carrying the stable element identifier. Its
// presence is what marks an element editable.
const UIDAttr = "data-uid"

// Parse parses an HTML string into a normalized document tree. x/net/html
// wraps fragments in html/head/body, which gives malformed input a usable
// root instead of an error.
func Parse(content string) (*html.Node, error) {
	return html.Parse(strings.NewReader(content))
}

// ParseLenient parses like Parse but never fails: on a reader-level error it
// returns an empty document. Callers on the never-throws paths (uid
// assignment, rebuild) use this.
func ParseLenient(content string) *html.Node {
	doc, err := Parse(content)
	if err != nil || doc == nil {
		doc, _ = Parse("")
	}
	return doc
}

// Render serialises a node tree back to an HTML string.
func Render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Walk calls fn for n and every descendant, depth-first. fn returning false
// prunes the subtree.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, fn)
	}
}

// Body returns the body element of a parsed document, or nil.
func Body(doc *html.Node) *html.Node {
	var body *html.Node
	Walk(doc, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return false
		}
		return body == nil
	})
	return body
}

// FindByUID returns the element whose data-uid equals uid, or nil. Screens
// are small (hundreds of nodes), so a fresh walk beats maintaining an index
// that every delete would invalidate.
func FindByUID(root *html.Node, uid string) *html.Node {
	if uid == "" {
		return nil
	}
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && GetAttr(n, UIDAttr) == uid {
			found = n
			return false
		}
		return found == nil
	})
	return found
}

// UID returns the element's data-uid, or "".
func UID(n *html.Node) string {
	return GetAttr(n, UIDAttr)
}

// GetAttr returns the value of an attribute on a node.
func GetAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether a node carries the attribute.
func HasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets or adds an attribute on a node, preserving attribute order
// for existing keys so serialization stays stable across edits.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute from a node if present.
func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// ClassList returns the node's classes in document order.
func ClassList(n *html.Node) []string {
	return strings.Fields(GetAttr(n, "class"))
}

// SetClassList writes the class attribute from a list. An empty list removes
// the attribute entirely rather than leaving class="".
func SetClassList(n *html.Node, classes []string) {
	if len(classes) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(classes, " "))
}

// IsFormControl reports whether text edits should target the control's value
// rather than its text content.
func IsFormControl(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Input, atom.Textarea, atom.Select:
		return true
	}
	return false
}

// SetText replaces a node's text. Form controls get their value attribute
// set; everything else has its children replaced by a single text node.
func SetText(n *html.Node, text string) {
	if IsFormControl(n) {
		SetAttr(n, "value", text)
		return
	}
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// Text returns the node's text content with whitespace runs collapsed and
// the result trimmed.
func Text(n *html.Node) string {
	var sb strings.Builder
	Walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

// ScreenContainer resolves the default selection target: the first element
// child of body carrying a uid, body itself if none exists, or the document
// root as a last resort on fragment soup.
func ScreenContainer(doc *html.Node) *html.Node {
	body := Body(doc)
	if body == nil {
		// Malformed enough that no body survived normalization; fall back
		// to the first element anywhere.
		var first *html.Node
		Walk(doc, func(n *html.Node) bool {
			if n.Type == html.ElementNode {
				first = n
				return false
			}
			return first == nil
		})
		return first
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && HasAttr(c, UIDAttr) {
			return c
		}
	}
	return body
}

// NodePath is the traversal from a root to a target node by child index.
// [0, 1, 3] means root -> child[0] -> child[1] -> child[3]. Raw pointer
// targets cross the bridge as paths because non-editable nodes carry no uid.
type NodePath []int

// NodeAt traverses root by path. Returns nil if the path walks off the tree;
// a stale path after a reload must resolve to nothing, not panic.
func NodeAt(root *html.Node, path NodePath) *html.Node {
	current := root
	for _, index := range path {
		child := childAt(current, index)
		if child == nil {
			return nil
		}
		current = child
	}
	return current
}

// PathTo computes the path from root to target.
func PathTo(root, target *html.Node) (NodePath, error) {
	var path NodePath
	current := target
	for current != root {
		parent := current.Parent
		if parent == nil {
			return nil, errors.New("dom: target is not a descendant of root")
		}
		index := childIndex(parent, current)
		if index < 0 {
			return nil, errors.New("dom: child not linked into parent")
		}
		path = append(NodePath{index}, path...)
		current = parent
	}
	return path, nil
}

func childAt(parent *html.Node, index int) *html.Node {
	count := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if count == index {
			return c
		}
		count++
	}
	return nil
}

func childIndex(parent, child *html.Node) int {
	count := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c == child {
			return count
		}
		count++
	}
	return -1
}
