package dom

import (
	"sort"

	"golang.org/x/net/html"
)

// TreeMutator applies patches to a live document tree. The sandbox agent
// holds one over its rendered document for instant feedback.
//
// Every method resolves the uid fresh and returns false when it no longer
// exists, so replays over documents where an earlier delete removed the
// target degrade to no-ops.
type TreeMutator struct {
	root *html.Node
}

// NewTreeMutator wraps an existing document tree.
func NewTreeMutator(root *html.Node) *TreeMutator {
	return &TreeMutator{root: root}
}

// Root returns the underlying document.
func (m *TreeMutator) Root() *html.Node {
	return m.root
}

func (m *TreeMutator) SetText(uid, text string) bool {
	n := FindByUID(m.root, uid)
	if n == nil {
		return false
	}
	SetText(n, text)
	return true
}

func (m *TreeMutator) SetStyle(uid string, style map[string]string) bool {
	n := FindByUID(m.root, uid)
	if n == nil {
		return false
	}
	merged := MergeStyle(GetAttr(n, "style"), style)
	if merged == "" {
		RemoveAttr(n, "style")
	} else {
		SetAttr(n, "style", merged)
	}
	return true
}

func (m *TreeMutator) SetAttr(uid string, attr map[string]string) bool {
	n := FindByUID(m.root, uid)
	if n == nil {
		return false
	}
	for _, key := range sortedKeys(attr) {
		SetAttr(n, key, attr[key])
	}
	return true
}

func (m *TreeMutator) SetClasses(uid string, add, remove []string) bool {
	n := FindByUID(m.root, uid)
	if n == nil {
		return false
	}

	removed := make(map[string]bool, len(remove))
	for _, c := range remove {
		removed[c] = true
	}

	var classes []string
	for _, c := range ClassList(n) {
		if !removed[c] {
			classes = append(classes, c)
		}
	}
	// Add runs after remove: a class listed in both ends up present.
	for _, c := range add {
		if c != "" && !contains(classes, c) {
			classes = append(classes, c)
		}
	}

	SetClassList(n, classes)
	return true
}

func (m *TreeMutator) DeleteNode(uid string) bool {
	n := FindByUID(m.root, uid)
	if n == nil || n.Parent == nil {
		return false
	}
	n.Parent.RemoveChild(n)
	return true
}

// StringMutator is the serialized-string applier used by the host-side
// replay engine. It parses once, mutates the tree through the same
// TreeMutator the agent uses, and renders back on demand; sharing the op
// implementations is what keeps live editing and replay from diverging.
type StringMutator struct {
	tree *TreeMutator
}

// NewStringMutator parses a document string. Malformed input degrades to
// whatever tree normalization produces; it never fails.
func NewStringMutator(content string) *StringMutator {
	return &StringMutator{tree: NewTreeMutator(ParseLenient(content))}
}

// HTML renders the current document state.
func (m *StringMutator) HTML() (string, error) {
	return Render(m.tree.root)
}

func (m *StringMutator) SetText(uid, text string) bool {
	return m.tree.SetText(uid, text)
}

func (m *StringMutator) SetStyle(uid string, style map[string]string) bool {
	return m.tree.SetStyle(uid, style)
}

func (m *StringMutator) SetAttr(uid string, attr map[string]string) bool {
	return m.tree.SetAttr(uid, attr)
}

func (m *StringMutator) SetClasses(uid string, add, remove []string) bool {
	return m.tree.SetClasses(uid, add, remove)
}

func (m *StringMutator) DeleteNode(uid string) bool {
	return m.tree.DeleteNode(uid)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
