package sanitize

import (
	"strings"
	"testing"
)

func TestHTML_StripsScripts(t *testing.T) {
	in := `<div data-uid="u1"><script>alert(1)</script><p>ok</p></div>`
	out := HTML(in)
	if strings.Contains(out, "<script") || strings.Contains(out, "alert(1)") {
		t.Fatalf("script survived: %s", out)
	}
	if !strings.Contains(out, "<p>ok</p>") {
		t.Fatalf("content lost: %s", out)
	}
}

func TestHTML_StripsEventHandlers(t *testing.T) {
	in := `<button data-uid="u1" onclick="steal()">Go</button>`
	out := HTML(in)
	if strings.Contains(out, "onclick") {
		t.Fatalf("handler survived: %s", out)
	}
	if !strings.Contains(out, "<button") || !strings.Contains(out, ">Go</button>") {
		t.Fatalf("button lost: %s", out)
	}
}

func TestHTML_StripsJavascriptURLs(t *testing.T) {
	in := `<a data-uid="u1" href="javascript:evil()">link</a>`
	out := HTML(in)
	if strings.Contains(out, "javascript:") {
		t.Fatalf("javascript url survived: %s", out)
	}
}

func TestHTML_PreservesEditorAttributes(t *testing.T) {
	in := `<div data-uid="u1" class="card shadow" style="color: red">Hi</div>`
	out := HTML(in)
	for _, want := range []string{`data-uid="u1"`, "card", "shadow", "color"} {
		if !strings.Contains(out, want) {
			t.Fatalf("lost %q: %s", want, out)
		}
	}
}

func TestHTML_RejectsMalformedUID(t *testing.T) {
	in := `<div data-uid="u1&quot; onmouseover=&quot;x">Hi</div>`
	out := HTML(in)
	if strings.Contains(out, "onmouseover") {
		t.Fatalf("smuggled attribute survived: %s", out)
	}
}

func TestHTML_KeepsFormControls(t *testing.T) {
	in := `<form data-uid="f1"><input data-uid="i1" type="text" value="Ada" placeholder="Name"><select data-uid="s1"><option value="a">A</option></select></form>`
	out := HTML(in)
	for _, want := range []string{"<form", "<input", `type="text"`, `value="Ada"`, "<select", "<option"} {
		if !strings.Contains(out, want) {
			t.Fatalf("lost %q: %s", want, out)
		}
	}
}
