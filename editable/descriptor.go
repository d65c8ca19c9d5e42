package editable

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dukes-snr/EazyUi-sub001/dom"
	"github.com/dukes-snr/EazyUi-sub001/idgen"
)

// Rect is an element bounding box in screen pixels. Zero-valued when no
// layout engine is attached; descriptor construction never fails on
// detached or zero-size elements.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Node is the full element descriptor mirrored to the host whenever the
// selection changes.
type Node struct {
	UID        string            `json:"uid"`
	Tag        string            `json:"tag"`
	Class      Class             `json:"classification"`
	Attrs      map[string]string `json:"attrs,omitempty"`
	Style      map[string]string `json:"style,omitempty"`    // inline declarations
	Computed   map[string]string `json:"computed,omitempty"` // resolved subset, layout engine only
	Rect       Rect              `json:"rect"`
	Text       string            `json:"text,omitempty"`
	Breadcrumb []string          `json:"breadcrumb,omitempty"` // ancestor uids, nearest first
	IsRoot     bool              `json:"is_root,omitempty"`
}

// StyleResolver supplies resolved computed style and layout rects for a uid.
// The rod-backed preview prober implements it; without one, descriptors
// carry inline style only and zero rects.
type StyleResolver interface {
	ResolvedStyle(uid string) map[string]string
	BoundingRect(uid string) (Rect, bool)
}

// Describe builds the full descriptor for an element. root is the screen
// container used as the breadcrumb terminus and for root detection; resolver
// may be nil.
func Describe(root, n *html.Node, gen idgen.Generator, resolver StyleResolver) Node {
	if n == nil {
		return Node{}
	}

	uid := dom.UID(n)
	d := Node{
		UID:    uid,
		Tag:    n.Data,
		Class:  Classify(n),
		Style:  dom.StyleMap(n),
		Text:   dom.Text(n),
		IsRoot: n == root || n.DataAtom == atom.Body || n.DataAtom == atom.Html,
	}

	d.Attrs = make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		if a.Key == dom.UIDAttr || a.Key == "style" {
			continue
		}
		d.Attrs[a.Key] = a.Val
	}

	d.Breadcrumb = Breadcrumb(root, n, gen)

	if resolver != nil && uid != "" {
		d.Computed = resolver.ResolvedStyle(uid)
		if r, ok := resolver.BoundingRect(uid); ok {
			d.Rect = r
		}
	}
	return d
}

// Breadcrumb walks upward through editable ancestors only, skipping
// non-editable wrappers, from n (exclusive) to root (inclusive). Allow-listed
// ancestors that never got a uid are stamped lazily so "select parent" always
// has a target. Nearest ancestor first.
func Breadcrumb(root, n *html.Node, gen idgen.Generator) []string {
	if n == nil || n == root {
		return nil
	}
	var crumbs []string
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if uid := EnsureUID(p, gen); uid != "" {
			crumbs = append(crumbs, uid)
		}
		if p == root {
			break
		}
	}
	return crumbs
}

// ParentUID returns the uid of the nearest editable ancestor of n, or "".
func ParentUID(root, n *html.Node, gen idgen.Generator) string {
	crumbs := Breadcrumb(root, n, gen)
	if len(crumbs) == 0 {
		return ""
	}
	return crumbs[0]
}

// NearestEditable resolves the closest editable element at or above n.
// Pointer targets hit text nodes and unlisted wrappers; hover and click both
// funnel through this.
func NearestEditable(n *html.Node) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if IsEditable(cur) {
			return cur
		}
	}
	return nil
}
