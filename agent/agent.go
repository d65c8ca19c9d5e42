// Package agent implements the sandboxed editor side of the bridge: it holds
// the live document tree for one screen, resolves pointer hits to editable
// nodes, maintains selection and hover state with their overlay geometry, and
// applies incoming patches. It never removes nodes on its own authority;
// deletes are requested upward and performed only when the host sends the
// resulting delete_node patch back down.
package agent

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dukes-snr/EazyUi-sub001/bridge"
	"github.com/dukes-snr/EazyUi-sub001/dom"
	"github.com/dukes-snr/EazyUi-sub001/editable"
	"github.com/dukes-snr/EazyUi-sub001/idgen"
	"github.com/dukes-snr/EazyUi-sub001/patch"
)

// Overlay is the highlight geometry drawn over the hovered or selected node.
type Overlay struct {
	Visible      bool
	UID          string
	Rect         editable.Rect
	Tag          string
	CornerRadius float64
}

// Config wires an Agent.
type Config struct {
	ScreenID  string
	HTML      string
	Transport bridge.Transport
	Logger    *slog.Logger
	Gen       idgen.Generator
	// Resolver supplies computed style and bounding rects; nil degrades all
	// rects to zero.
	Resolver editable.StyleResolver
	// FrameRadius is the device-frame corner radius applied to the overlay
	// when the selection is the screen root.
	FrameRadius float64
}

// Agent is one sandbox instance. All state is guarded by mu; commands are
// processed one at a time.
type Agent struct {
	screenID    string
	transport   bridge.Transport
	logger      *slog.Logger
	gen         idgen.Generator
	resolver    editable.StyleResolver
	frameRadius float64

	mu        sync.Mutex
	doc       *html.Node
	mut       *dom.TreeMutator
	container *html.Node
	selected  *html.Node
	hovered   *html.Node
	overlay   Overlay

	mismatched atomic.Int64
}

// New creates an agent over the given document and emits the initial ready
// event.
func New(cfg Config) *Agent {
	a := &Agent{
		screenID:    cfg.ScreenID,
		transport:   cfg.Transport,
		logger:      cfg.Logger,
		gen:         cfg.Gen,
		resolver:    cfg.Resolver,
		frameRadius: cfg.FrameRadius,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.gen == nil {
		a.gen = idgen.ElementUID
	}
	a.mu.Lock()
	a.loadLocked(cfg.HTML)
	a.mu.Unlock()
	return a
}

// Run consumes commands until the context is cancelled or the transport
// closes. Call it once, from its own goroutine.
func (a *Agent) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-a.transport.Commands():
			if !ok {
				return
			}
			a.HandleEnvelope(env)
		}
	}
}

// HandleEnvelope processes one command envelope. Exported so in-process
// hosts can drive the agent synchronously instead of through Run.
func (a *Agent) HandleEnvelope(env bridge.Envelope) {
	if env.ScreenID != a.screenID {
		a.mismatched.Add(1)
		a.logger.Debug("command for other screen dropped", "screen_id", env.ScreenID, "type", env.Type)
		return
	}
	c, err := bridge.DecodeCommand(env)
	if err != nil {
		a.logger.Warn("malformed command dropped", "screen_id", env.ScreenID, "error", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	switch c.Type {
	case bridge.CmdApplyPatch:
		a.applyPatchLocked(*c.Patch)
	case bridge.CmdSelectUID:
		a.selectLocked(dom.FindByUID(a.doc, c.UID))
	case bridge.CmdSelectParent:
		if a.selected != nil {
			a.selectLocked(a.ancestorEditableLocked(a.selected))
		}
	case bridge.CmdSelectContainer:
		a.selectLocked(a.container)
	case bridge.CmdClearSelection:
		a.clearSelectionLocked()
	case bridge.CmdDeleteSelected:
		a.requestDeleteLocked()
	case bridge.CmdPointerMove:
		a.pointerMoveLocked(c.Path)
	case bridge.CmdClick:
		a.clickLocked(c.Path)
	case bridge.CmdReload:
		a.loadLocked(c.HTML)
	}
}

// loadLocked replaces the document wholesale. All pointer state is discarded
// and nothing is re-selected; the host decides what to select next.
func (a *Agent) loadLocked(content string) {
	a.doc = dom.ParseLenient(content)
	a.mut = dom.NewTreeMutator(a.doc)
	a.container = dom.ScreenContainer(a.doc)
	a.selected = nil
	a.hovered = nil
	a.overlay = Overlay{}
	a.emit(bridge.Event{Type: bridge.EvtReady})
}

func (a *Agent) applyPatchLocked(p patch.Patch) {
	found, err := patch.Apply(a.mut, p)
	if err != nil {
		a.logger.Warn("patch rejected", "op", p.Op, "uid", p.UID, "error", err)
		return
	}
	if !found {
		a.logger.Debug("patch for missing uid ignored", "op", p.Op, "uid", p.UID)
		return
	}
	a.emit(bridge.Event{Type: bridge.EvtPatchApplied, UID: p.UID, Op: p.Op})

	if p.Op == patch.OpDeleteNode {
		if a.hovered != nil && dom.UID(a.hovered) == p.UID {
			a.hovered = nil
		}
		if a.container != nil && dom.UID(a.container) == p.UID {
			a.container = dom.ScreenContainer(a.doc)
		}
		if a.selected != nil && dom.UID(a.selected) == p.UID {
			// Deleting the selection falls back to the screen container so
			// the user always has an anchor to keep editing from.
			a.selected = nil
			a.selectLocked(a.container)
		}
		return
	}
	// Geometry or text of the selection may have changed; refresh the
	// overlay and tell the host.
	if a.selected != nil && dom.UID(a.selected) == p.UID {
		a.selectLocked(a.selected)
	}
}

func (a *Agent) selectLocked(n *html.Node) {
	if n == nil {
		return
	}
	a.selected = n
	a.hovered = nil

	desc := editable.Describe(a.container, n, a.gen, a.resolver)
	radius := 0.0
	if desc.IsRoot {
		radius = a.frameRadius
	}
	a.overlay = Overlay{
		Visible:      true,
		UID:          desc.UID,
		Rect:         desc.Rect,
		Tag:          desc.Tag,
		CornerRadius: radius,
	}
	a.emit(bridge.Event{Type: bridge.EvtSelectionChanged, Node: &desc})
}

func (a *Agent) clearSelectionLocked() {
	if a.selected == nil {
		return
	}
	a.selected = nil
	a.overlay = Overlay{}
	a.emit(bridge.Event{Type: bridge.EvtSelectionCleared})
}

func (a *Agent) requestDeleteLocked() {
	if a.selected == nil {
		return
	}
	uid := dom.UID(a.selected)
	if a.selected == a.container || a.selected.DataAtom == atom.Body || a.selected.DataAtom == atom.Html {
		// The screen root stays. Rejected here, no event: the host never
		// sees a request it would have to refuse.
		a.logger.Debug("delete of screen root ignored", "uid", uid)
		return
	}
	a.emit(bridge.Event{Type: bridge.EvtDeleteRequested, UID: uid})
}

func (a *Agent) pointerMoveLocked(path dom.NodePath) {
	// Hover is suppressed while something is selected; the selection overlay
	// owns the highlight.
	if a.selected != nil {
		if a.hovered != nil {
			a.hovered = nil
			a.emit(bridge.Event{Type: bridge.EvtHoverChanged})
		}
		return
	}

	target := editable.NearestEditable(dom.NodeAt(a.doc, path))
	if target == a.hovered {
		return
	}
	a.hovered = target
	if target == nil {
		a.overlay = Overlay{}
		a.emit(bridge.Event{Type: bridge.EvtHoverChanged})
		return
	}

	uid := dom.UID(target)
	rect := a.rect(uid)
	a.overlay = Overlay{Visible: true, UID: uid, Rect: rect, Tag: target.Data}
	a.emit(bridge.Event{Type: bridge.EvtHoverChanged, UID: uid, Rect: &rect, Tag: target.Data})
}

func (a *Agent) clickLocked(path dom.NodePath) {
	target := editable.NearestEditable(dom.NodeAt(a.doc, path))
	if target == nil {
		a.clearSelectionLocked()
		return
	}
	a.selectLocked(target)
}

// ancestorEditableLocked finds the nearest allow-listed ancestor, stamping a
// uid lazily, stopping at the screen container.
func (a *Agent) ancestorEditableLocked(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if dom.UID(p) != "" || editable.IsAllowed(p) {
			editable.EnsureUID(p, a.gen)
			return p
		}
		if p == a.container {
			return p
		}
	}
	return nil
}

func (a *Agent) rect(uid string) editable.Rect {
	if a.resolver == nil {
		return editable.Rect{}
	}
	r, ok := a.resolver.BoundingRect(uid)
	if !ok {
		return editable.Rect{}
	}
	return r
}

func (a *Agent) emit(e bridge.Event) {
	env, err := bridge.EncodeEvent(a.screenID, e)
	if err != nil {
		a.logger.Error("encode event", "type", e.Type, "error", err)
		return
	}
	if !a.transport.SendEvent(env) {
		a.logger.Debug("event dropped", "type", e.Type, "screen_id", a.screenID)
	}
}

// HTML renders the current live document.
func (a *Agent) HTML() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return dom.Render(a.doc)
}

// Overlay returns a copy of the current overlay state.
func (a *Agent) Overlay() Overlay {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.overlay
}

// SelectedUID returns the uid of the selected node, or "".
func (a *Agent) SelectedUID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selected == nil {
		return ""
	}
	return dom.UID(a.selected)
}

// HoveredUID returns the uid of the hovered node, or "".
func (a *Agent) HoveredUID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hovered == nil {
		return ""
	}
	return dom.UID(a.hovered)
}

// Mismatched reports how many envelopes were dropped for carrying a foreign
// screen id.
func (a *Agent) Mismatched() int64 {
	return a.mismatched.Load()
}
