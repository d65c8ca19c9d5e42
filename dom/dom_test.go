package dom

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parse(t *testing.T, content string) *html.Node {
	t.Helper()
	doc, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestParseRender_Roundtrip(t *testing.T) {
	doc := parse(t, `<body><div data-uid="u1">Hi</div></body>`)
	out, err := Render(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `<div data-uid="u1">Hi</div>`) {
		t.Fatalf("render lost content: %q", out)
	}
	// Render of a re-parse must be stable.
	again, err := Render(ParseLenient(out))
	if err != nil {
		t.Fatal(err)
	}
	if again != out {
		t.Fatalf("serialization not stable:\n%q\n%q", out, again)
	}
}

func TestParseLenient_NeverNil(t *testing.T) {
	for _, input := range []string{"", "<div", "<<<>>>", "plain text", "<td>orphan cell</td>"} {
		doc := ParseLenient(input)
		if doc == nil {
			t.Fatalf("ParseLenient(%q) = nil", input)
		}
		if _, err := Render(doc); err != nil {
			t.Fatalf("Render after ParseLenient(%q): %v", input, err)
		}
	}
}

func TestFindByUID(t *testing.T) {
	doc := parse(t, `<body><div data-uid="a"><span data-uid="b">x</span></div></body>`)

	if n := FindByUID(doc, "b"); n == nil || n.Data != "span" {
		t.Fatalf("FindByUID(b) = %v", n)
	}
	if n := FindByUID(doc, "missing"); n != nil {
		t.Fatalf("FindByUID(missing) = %v, want nil", n)
	}
	if n := FindByUID(doc, ""); n != nil {
		t.Fatal("FindByUID with empty uid must return nil")
	}
}

func TestAttrHelpers(t *testing.T) {
	doc := parse(t, `<body><div data-uid="a" class="x"></div></body>`)
	n := FindByUID(doc, "a")

	if GetAttr(n, "class") != "x" {
		t.Fatalf("GetAttr class = %q", GetAttr(n, "class"))
	}
	SetAttr(n, "class", "y")
	SetAttr(n, "role", "main")
	if GetAttr(n, "class") != "y" || GetAttr(n, "role") != "main" {
		t.Fatalf("SetAttr failed: %v", n.Attr)
	}
	// Existing keys keep their position.
	if n.Attr[1].Key != "class" {
		t.Fatalf("attr order changed: %v", n.Attr)
	}
	RemoveAttr(n, "role")
	if HasAttr(n, "role") {
		t.Fatal("RemoveAttr left the attribute")
	}
}

func TestSetText(t *testing.T) {
	doc := parse(t, `<body><p data-uid="p1">old <b>bold</b></p><input data-uid="i1" value="old"></body>`)

	p := FindByUID(doc, "p1")
	SetText(p, "new")
	if got := Text(p); got != "new" {
		t.Fatalf("Text after SetText = %q", got)
	}
	if p.FirstChild == nil || p.FirstChild.NextSibling != nil {
		t.Fatal("SetText should leave exactly one text child")
	}

	in := FindByUID(doc, "i1")
	SetText(in, "typed")
	if GetAttr(in, "value") != "typed" {
		t.Fatalf("form control value = %q", GetAttr(in, "value"))
	}
	if in.FirstChild != nil {
		t.Fatal("form control must not gain text children")
	}
}

func TestText_CollapsesWhitespace(t *testing.T) {
	doc := parse(t, "<body><div data-uid=\"d\">  Hello\n\t <span>world</span>  </div></body>")
	if got := Text(FindByUID(doc, "d")); got != "Hello world" {
		t.Fatalf("Text = %q, want %q", got, "Hello world")
	}
}

func TestScreenContainer(t *testing.T) {
	t.Run("first uid child of body", func(t *testing.T) {
		doc := parse(t, `<body><script></script><div data-uid="root">x</div></body>`)
		c := ScreenContainer(doc)
		if c == nil || UID(c) != "root" {
			t.Fatalf("container = %v", c)
		}
	})

	t.Run("falls back to body", func(t *testing.T) {
		doc := parse(t, `<body><div>no uid</div></body>`)
		c := ScreenContainer(doc)
		if c == nil || c.Data != "body" {
			t.Fatalf("container = %v, want body", c)
		}
	})

	t.Run("empty document", func(t *testing.T) {
		doc := ParseLenient("")
		if ScreenContainer(doc) == nil {
			t.Fatal("empty document must still resolve a container")
		}
	})
}

func TestNodePath(t *testing.T) {
	doc := parse(t, `<body><div data-uid="a"><span>one</span><span data-uid="b">two</span></div></body>`)

	target := FindByUID(doc, "b")
	path, err := PathTo(doc, target)
	if err != nil {
		t.Fatal(err)
	}
	if got := NodeAt(doc, path); got != target {
		t.Fatalf("NodeAt(PathTo) did not return the target")
	}

	// A path off the end of the tree resolves to nil, not a panic.
	if n := NodeAt(doc, NodePath{0, 9, 9}); n != nil {
		t.Fatalf("stale path resolved to %v", n)
	}

	// Target outside the root errors.
	other := parse(t, `<body><p data-uid="x">y</p></body>`)
	if _, err := PathTo(doc, FindByUID(other, "x")); err == nil {
		t.Fatal("expected error for foreign target")
	}
}

func TestClassList(t *testing.T) {
	doc := parse(t, `<body><div data-uid="a" class="one two"></div></body>`)
	n := FindByUID(doc, "a")

	got := ClassList(n)
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("ClassList = %v", got)
	}

	SetClassList(n, nil)
	if HasAttr(n, "class") {
		t.Fatal("empty class list should remove the attribute")
	}
}
