package dom

import "testing"

func TestParseStyle(t *testing.T) {
	decls := ParseStyle("color: red; padding:4px ;; background-image: url(a;b)x")
	// The url() case splits on ';' — a known limit of inline parsing; the
	// first two declarations must still survive.
	if len(decls) < 2 {
		t.Fatalf("decls = %v", decls)
	}
	if decls[0].Prop != "color" || decls[0].Val != "red" {
		t.Fatalf("decls[0] = %+v", decls[0])
	}
	if decls[1].Prop != "padding" || decls[1].Val != "4px" {
		t.Fatalf("decls[1] = %+v", decls[1])
	}
}

func TestParseStyle_DuplicateLastWins(t *testing.T) {
	decls := ParseStyle("color: red; color: blue")
	if len(decls) != 1 || decls[0].Val != "blue" {
		t.Fatalf("decls = %v", decls)
	}
}

func TestMergeStyle(t *testing.T) {
	got := MergeStyle("color: red; padding: 4px", map[string]string{
		"color":  "blue",
		"margin": "8px",
	})
	want := "color: blue; padding: 4px; margin: 8px"
	if got != want {
		t.Fatalf("MergeStyle = %q, want %q", got, want)
	}
}

func TestMergeStyle_Deterministic(t *testing.T) {
	updates := map[string]string{"z-index": "1", "align-items": "center", "margin": "0"}
	first := MergeStyle("", updates)
	for i := 0; i < 20; i++ {
		if got := MergeStyle("", updates); got != first {
			t.Fatalf("merge order unstable: %q vs %q", got, first)
		}
	}
	// New properties append in sorted order.
	if first != "align-items: center; margin: 0; z-index: 1" {
		t.Fatalf("MergeStyle = %q", first)
	}
}

func TestMergeStyle_EmptyValueRemoves(t *testing.T) {
	got := MergeStyle("color: red; padding: 4px", map[string]string{"color": ""})
	if got != "padding: 4px" {
		t.Fatalf("MergeStyle = %q", got)
	}
}

func TestStyleMap(t *testing.T) {
	doc := parse(t, `<body><div data-uid="a" style="color: red; margin: 0"></div></body>`)
	m := StyleMap(FindByUID(doc, "a"))
	if m["color"] != "red" || m["margin"] != "0" {
		t.Fatalf("StyleMap = %v", m)
	}
}
