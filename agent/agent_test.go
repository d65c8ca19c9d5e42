package agent

import (
	"strings"
	"testing"

	"github.com/dukes-snr/EazyUi-sub001/bridge"
	"github.com/dukes-snr/EazyUi-sub001/dom"
	"github.com/dukes-snr/EazyUi-sub001/patch"
)

const screenHTML = `<body><div data-uid="root1" class="screen">` +
	`<p data-uid="p1">Hello</p>` +
	`<button data-uid="b1">Go</button>` +
	`</div></body>`

func seqGen() func() string {
	n := 0
	return func() string {
		n++
		return "gen" + string(rune('0'+n))
	}
}

func newTestAgent(t *testing.T) (*Agent, *bridge.InProc) {
	t.Helper()
	tr := bridge.NewInProc(64)
	t.Cleanup(tr.Close)
	a := New(Config{
		ScreenID:    "scr_1",
		HTML:        screenHTML,
		Transport:   tr,
		Gen:         seqGen(),
		FrameRadius: 24,
	})
	return a, tr
}

// drain decodes every queued event without blocking.
func drain(t *testing.T, tr *bridge.InProc) []bridge.Event {
	t.Helper()
	var out []bridge.Event
	for {
		select {
		case env := <-tr.Events():
			e, err := bridge.DecodeEvent(env)
			if err != nil {
				t.Fatalf("decode event: %v", err)
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func send(t *testing.T, a *Agent, c bridge.Command) {
	t.Helper()
	env, err := bridge.EncodeCommand("scr_1", c)
	if err != nil {
		t.Fatal(err)
	}
	a.HandleEnvelope(env)
}

// pathTo computes a node path on an identically parsed copy of the document;
// the lenient parser is deterministic so paths line up.
func pathTo(t *testing.T, content, uid string) dom.NodePath {
	t.Helper()
	doc := dom.ParseLenient(content)
	n := dom.FindByUID(doc, uid)
	if n == nil {
		t.Fatalf("no node %q in fixture", uid)
	}
	p, err := dom.PathTo(doc, n)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNew_EmitsReady(t *testing.T) {
	a, tr := newTestAgent(t)
	events := drain(t, tr)
	if len(events) != 1 || events[0].Type != bridge.EvtReady {
		t.Fatalf("events = %+v", events)
	}
	if a.SelectedUID() != "" || a.Overlay().Visible {
		t.Fatal("fresh agent has pointer state")
	}
}

func TestClickSelects(t *testing.T) {
	a, tr := newTestAgent(t)
	drain(t, tr)

	send(t, a, bridge.Command{Type: bridge.CmdClick, Path: pathTo(t, screenHTML, "p1")})

	events := drain(t, tr)
	if len(events) != 1 || events[0].Type != bridge.EvtSelectionChanged {
		t.Fatalf("events = %+v", events)
	}
	d := events[0].Node
	if d.UID != "p1" || d.Tag != "p" || d.Text != "Hello" {
		t.Fatalf("descriptor = %+v", d)
	}
	if d.IsRoot {
		t.Fatal("paragraph flagged as root")
	}
	if len(d.Breadcrumb) != 1 || d.Breadcrumb[0] != "root1" {
		t.Fatalf("breadcrumb = %v", d.Breadcrumb)
	}

	ov := a.Overlay()
	if !ov.Visible || ov.UID != "p1" || ov.CornerRadius != 0 {
		t.Fatalf("overlay = %+v", ov)
	}
}

func TestSelectContainer_RootRadius(t *testing.T) {
	a, tr := newTestAgent(t)
	drain(t, tr)

	send(t, a, bridge.Command{Type: bridge.CmdSelectContainer})

	events := drain(t, tr)
	if len(events) != 1 || events[0].Node.UID != "root1" {
		t.Fatalf("events = %+v", events)
	}
	if !events[0].Node.IsRoot {
		t.Fatal("container descriptor not flagged as root")
	}
	if ov := a.Overlay(); ov.CornerRadius != 24 {
		t.Fatalf("root overlay radius = %v", ov.CornerRadius)
	}
}

func TestSelectParent(t *testing.T) {
	a, tr := newTestAgent(t)
	send(t, a, bridge.Command{Type: bridge.CmdSelectUID, UID: "b1"})
	drain(t, tr)

	send(t, a, bridge.Command{Type: bridge.CmdSelectParent})
	events := drain(t, tr)
	if len(events) != 1 || events[0].Node.UID != "root1" {
		t.Fatalf("events = %+v", events)
	}

	// At the container the walk stops; nothing above body is selectable.
	send(t, a, bridge.Command{Type: bridge.CmdSelectParent})
	if a.SelectedUID() != "root1" {
		t.Fatalf("selection moved past the container: %q", a.SelectedUID())
	}
}

func TestHover(t *testing.T) {
	a, tr := newTestAgent(t)
	drain(t, tr)

	p := pathTo(t, screenHTML, "b1")
	send(t, a, bridge.Command{Type: bridge.CmdPointerMove, Path: p})

	events := drain(t, tr)
	if len(events) != 1 || events[0].Type != bridge.EvtHoverChanged || events[0].UID != "b1" {
		t.Fatalf("events = %+v", events)
	}
	if a.HoveredUID() != "b1" {
		t.Fatalf("hovered = %q", a.HoveredUID())
	}

	// Same target again coalesces to nothing.
	send(t, a, bridge.Command{Type: bridge.CmdPointerMove, Path: p})
	if events := drain(t, tr); len(events) != 0 {
		t.Fatalf("duplicate hover emitted events: %+v", events)
	}

	// Off the document clears the hover.
	send(t, a, bridge.Command{Type: bridge.CmdPointerMove, Path: dom.NodePath{99, 99}})
	events = drain(t, tr)
	if len(events) != 1 || events[0].Type != bridge.EvtHoverChanged || events[0].UID != "" {
		t.Fatalf("events = %+v", events)
	}
	if a.HoveredUID() != "" {
		t.Fatal("hover survived leaving the document")
	}
}

func TestHoverSuppressedWhileSelected(t *testing.T) {
	a, tr := newTestAgent(t)
	send(t, a, bridge.Command{Type: bridge.CmdSelectUID, UID: "p1"})
	drain(t, tr)

	send(t, a, bridge.Command{Type: bridge.CmdPointerMove, Path: pathTo(t, screenHTML, "b1")})
	if events := drain(t, tr); len(events) != 0 {
		t.Fatalf("hover emitted while selected: %+v", events)
	}
	if a.HoveredUID() != "" {
		t.Fatal("hover state set while selected")
	}

	send(t, a, bridge.Command{Type: bridge.CmdClearSelection})
	events := drain(t, tr)
	if len(events) != 1 || events[0].Type != bridge.EvtSelectionCleared {
		t.Fatalf("events = %+v", events)
	}

	send(t, a, bridge.Command{Type: bridge.CmdPointerMove, Path: pathTo(t, screenHTML, "b1")})
	events = drain(t, tr)
	if len(events) != 1 || events[0].UID != "b1" {
		t.Fatalf("hover after clear: %+v", events)
	}
}

func TestDeleteSelected(t *testing.T) {
	a, tr := newTestAgent(t)

	// Nothing selected: no request.
	send(t, a, bridge.Command{Type: bridge.CmdDeleteSelected})
	drain(t, tr)

	// The screen root is not deletable; no event leaves the sandbox.
	send(t, a, bridge.Command{Type: bridge.CmdSelectContainer})
	drain(t, tr)
	send(t, a, bridge.Command{Type: bridge.CmdDeleteSelected})
	if events := drain(t, tr); len(events) != 0 {
		t.Fatalf("root delete emitted: %+v", events)
	}

	send(t, a, bridge.Command{Type: bridge.CmdSelectUID, UID: "p1"})
	drain(t, tr)
	send(t, a, bridge.Command{Type: bridge.CmdDeleteSelected})
	events := drain(t, tr)
	if len(events) != 1 || events[0].Type != bridge.EvtDeleteRequested || events[0].UID != "p1" {
		t.Fatalf("events = %+v", events)
	}
	// The request alone removes nothing.
	if out, _ := a.HTML(); !strings.Contains(out, `data-uid="p1"`) {
		t.Fatal("node removed before the patch arrived")
	}
}

func TestApplyPatch(t *testing.T) {
	a, tr := newTestAgent(t)
	drain(t, tr)

	p := patch.Patch{Op: patch.OpSetText, UID: "p1", Text: "Bye"}
	send(t, a, bridge.Command{Type: bridge.CmdApplyPatch, Patch: &p})

	events := drain(t, tr)
	if len(events) != 1 || events[0].Type != bridge.EvtPatchApplied || events[0].UID != "p1" {
		t.Fatalf("events = %+v", events)
	}
	if out, _ := a.HTML(); !strings.Contains(out, `<p data-uid="p1">Bye</p>`) {
		t.Fatalf("html = %s", out)
	}

	// Missing uid: silent no-op, no event.
	missing := patch.Patch{Op: patch.OpSetText, UID: "nope", Text: "x"}
	send(t, a, bridge.Command{Type: bridge.CmdApplyPatch, Patch: &missing})
	if events := drain(t, tr); len(events) != 0 {
		t.Fatalf("missing uid emitted: %+v", events)
	}
}

func TestApplyPatch_RefreshesSelectedDescriptor(t *testing.T) {
	a, tr := newTestAgent(t)
	send(t, a, bridge.Command{Type: bridge.CmdSelectUID, UID: "p1"})
	drain(t, tr)

	p := patch.Patch{Op: patch.OpSetStyle, UID: "p1", Style: map[string]string{"color": "red"}}
	send(t, a, bridge.Command{Type: bridge.CmdApplyPatch, Patch: &p})

	events := drain(t, tr)
	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Type != bridge.EvtPatchApplied {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].Type != bridge.EvtSelectionChanged || events[1].Node.Style["color"] != "red" {
		t.Fatalf("re-broadcast = %+v", events[1])
	}

	// A patch on another node leaves the selection alone.
	q := patch.Patch{Op: patch.OpSetText, UID: "b1", Text: "Stop"}
	send(t, a, bridge.Command{Type: bridge.CmdApplyPatch, Patch: &q})
	events = drain(t, tr)
	if len(events) != 1 || events[0].Type != bridge.EvtPatchApplied {
		t.Fatalf("events = %+v", events)
	}
}

func TestDeletePatch_FallsBackToContainer(t *testing.T) {
	a, tr := newTestAgent(t)
	send(t, a, bridge.Command{Type: bridge.CmdSelectUID, UID: "p1"})
	drain(t, tr)

	p := patch.Patch{Op: patch.OpDeleteNode, UID: "p1"}
	send(t, a, bridge.Command{Type: bridge.CmdApplyPatch, Patch: &p})

	events := drain(t, tr)
	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Type != bridge.EvtPatchApplied || events[0].Op != patch.OpDeleteNode {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].Type != bridge.EvtSelectionChanged || events[1].Node.UID != "root1" {
		t.Fatalf("fallback selection = %+v", events[1])
	}
	if out, _ := a.HTML(); strings.Contains(out, `data-uid="p1"`) {
		t.Fatalf("node survived delete: %s", out)
	}
}

func TestReload_DiscardsState(t *testing.T) {
	a, tr := newTestAgent(t)
	send(t, a, bridge.Command{Type: bridge.CmdSelectUID, UID: "p1"})
	drain(t, tr)

	next := `<body><div data-uid="root1"><span data-uid="s1">Fresh</span></div></body>`
	send(t, a, bridge.Command{Type: bridge.CmdReload, HTML: next})

	events := drain(t, tr)
	if len(events) != 1 || events[0].Type != bridge.EvtReady {
		t.Fatalf("events = %+v", events)
	}
	if a.SelectedUID() != "" || a.HoveredUID() != "" || a.Overlay().Visible {
		t.Fatal("pointer state survived reload")
	}
	if out, _ := a.HTML(); !strings.Contains(out, "Fresh") {
		t.Fatalf("document not replaced: %s", out)
	}
}

func TestScreenMismatchDropped(t *testing.T) {
	a, tr := newTestAgent(t)
	drain(t, tr)

	env, _ := bridge.EncodeCommand("scr_other", bridge.Command{Type: bridge.CmdSelectUID, UID: "p1"})
	a.HandleEnvelope(env)

	if events := drain(t, tr); len(events) != 0 {
		t.Fatalf("foreign command produced events: %+v", events)
	}
	if a.Mismatched() != 1 {
		t.Fatalf("mismatch counter = %d", a.Mismatched())
	}
	if a.SelectedUID() != "" {
		t.Fatal("foreign command changed state")
	}
}
