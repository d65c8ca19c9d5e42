package dom

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Declaration is one inline-style property.
type Declaration struct {
	Prop string
	Val  string
}

// ParseStyle splits an inline style string into declarations, preserving
// document order. Later duplicates of a property win, matching how browsers
// apply inline style text.
func ParseStyle(style string) []Declaration {
	var decls []Declaration
	for _, part := range strings.Split(style, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.IndexByte(part, ':')
		if idx < 0 {
			continue
		}
		prop := strings.TrimSpace(part[:idx])
		val := strings.TrimSpace(part[idx+1:])
		if prop == "" {
			continue
		}
		if i := declIndex(decls, prop); i >= 0 {
			decls[i].Val = val
			continue
		}
		decls = append(decls, Declaration{Prop: prop, Val: val})
	}
	return decls
}

// FormatStyle serialises declarations back to "prop: val; prop: val".
func FormatStyle(decls []Declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.Prop+": "+d.Val)
	}
	return strings.Join(parts, "; ")
}

// MergeStyle applies updates into an existing inline style string, property
// by property. Existing properties keep their position; new properties are
// appended in sorted order so the merged result is deterministic regardless
// of map iteration. An empty update value removes the property.
func MergeStyle(existing string, updates map[string]string) string {
	decls := ParseStyle(existing)

	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, prop := range keys {
		val := updates[prop]
		i := declIndex(decls, prop)
		switch {
		case val == "" && i >= 0:
			decls = append(decls[:i], decls[i+1:]...)
		case i >= 0:
			decls[i].Val = val
		case val != "":
			decls = append(decls, Declaration{Prop: prop, Val: val})
		}
	}
	return FormatStyle(decls)
}

// StyleMap returns the node's inline style as a property map.
func StyleMap(n *html.Node) map[string]string {
	decls := ParseStyle(GetAttr(n, "style"))
	m := make(map[string]string, len(decls))
	for _, d := range decls {
		m[d.Prop] = d.Val
	}
	return m
}

func declIndex(decls []Declaration, prop string) int {
	for i, d := range decls {
		if d.Prop == prop {
			return i
		}
	}
	return -1
}
