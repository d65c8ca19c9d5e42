package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukes-snr/EazyUi-sub001/dom"
	"github.com/dukes-snr/EazyUi-sub001/patch"
	"github.com/dukes-snr/EazyUi-sub001/patchlog"
)

// ErrNoSession is returned by edit operations outside edit mode.
var ErrNoSession = fmt.Errorf("bridge: no active edit session")

// EventHook observes decoded events after the host has updated its own
// state. Used for audit logging and UI fan-out; never for control flow.
type EventHook func(screenID string, e Event)

// Host is the host side of the bridge. It owns the single active edit
// session, forwards commands to the sandbox, and consumes the event stream:
// selection events update the session mirror, delete requests are converted
// into delete_node patches, pushed to the log, and forwarded back down as
// apply_patch commands.
type Host struct {
	transport Transport
	logger    *slog.Logger
	hook      EventHook

	mu      sync.Mutex
	session *patchlog.Session
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger sets a custom logger for the host.
func WithLogger(l *slog.Logger) HostOption {
	return func(h *Host) { h.logger = l }
}

// WithEventHook registers an observer for decoded sandbox events.
func WithEventHook(hook EventHook) HostOption {
	return func(h *Host) { h.hook = hook }
}

// NewHost creates a Host over a transport. Call Run to start consuming
// events.
func NewHost(t Transport, opts ...HostOption) *Host {
	h := &Host{
		transport: t,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// StartSession begins editing a screen. Any previous session must have been
// ended first; the caller is responsible for flushing it.
func (h *Host) StartSession(screenID, baseHTML string) (*patchlog.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session != nil {
		return nil, fmt.Errorf("bridge: session %q still active", h.session.ScreenID)
	}
	h.session = patchlog.NewSession(screenID, baseHTML)
	h.logger.Info("edit session started", "screen_id", screenID)
	return h.session, nil
}

// EndSession tears the active session down and returns its rebuilt HTML and
// whether any edits were recorded. The caller persists the HTML when dirty.
func (h *Host) EndSession() (screenID, html string, dirty bool, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return "", "", false, ErrNoSession
	}
	s := h.session
	h.session = nil
	h.logger.Info("edit session ended", "screen_id", s.ScreenID, "patches", s.Log.Len(), "cursor", s.Log.Cursor())
	return s.ScreenID, s.Log.Rebuild(), s.HasEdits(), nil
}

// Session returns the active session, or nil outside edit mode.
func (h *Host) Session() *patchlog.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// PushPatch records a patch in the log and forwards it to the sandbox so the
// live document keeps up. The log is the source of truth: the forward is
// fire-and-forget and a dropped command only desyncs the preview, which the
// next reload repairs.
func (h *Host) PushPatch(p patch.Patch) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pushLocked(p)
}

func (h *Host) pushLocked(p patch.Patch) error {
	if h.session == nil {
		return ErrNoSession
	}
	if err := h.session.Log.Push(p); err != nil {
		return err
	}
	if p.Op == patch.OpDeleteNode {
		h.session.ClearSelectionIf(p.UID)
	}
	h.sendLocked(Command{Type: CmdApplyPatch, Patch: &p})
	return nil
}

// Undo steps the log back and reloads the sandbox with the rebuilt document.
// Returns false at the beginning of history.
func (h *Host) Undo() (bool, error) {
	return h.step(func(l *patchlog.Log) bool { return l.Undo() })
}

// Redo steps the log forward and reloads the sandbox. Returns false when no
// redo tail exists.
func (h *Host) Redo() (bool, error) {
	return h.step(func(l *patchlog.Log) bool { return l.Redo() })
}

func (h *Host) step(move func(*patchlog.Log) bool) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return false, ErrNoSession
	}
	if !move(h.session.Log) {
		return false, nil
	}
	// Patches are not invertible, so every cursor move is a full reload.
	h.session.SetSelection(nil)
	h.sendLocked(Command{Type: CmdReload, HTML: h.session.Log.Rebuild()})
	return true, nil
}

// SelectUID asks the sandbox to select a node by uid.
func (h *Host) SelectUID(uid string) error {
	return h.send(Command{Type: CmdSelectUID, UID: uid})
}

// SelectParent asks the sandbox to move the selection one ancestor up.
func (h *Host) SelectParent() error {
	return h.send(Command{Type: CmdSelectParent})
}

// SelectContainer asks the sandbox to select the screen container.
func (h *Host) SelectContainer() error {
	return h.send(Command{Type: CmdSelectContainer})
}

// ClearSelection asks the sandbox to drop its selection.
func (h *Host) ClearSelection() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return ErrNoSession
	}
	h.session.SetSelection(nil)
	h.sendLocked(Command{Type: CmdClearSelection})
	return nil
}

// DeleteSelected asks the sandbox to request deletion of its selection. The
// actual removal happens only when the resulting delete_requested event
// flows back through handleEvent.
func (h *Host) DeleteSelected() error {
	return h.send(Command{Type: CmdDeleteSelected})
}

// PointerMove forwards a pointer position as a node path.
func (h *Host) PointerMove(path dom.NodePath) error {
	return h.send(Command{Type: CmdPointerMove, Path: path})
}

// Click forwards a click as a node path.
func (h *Host) Click(path dom.NodePath) error {
	return h.send(Command{Type: CmdClick, Path: path})
}

func (h *Host) send(c Command) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return ErrNoSession
	}
	h.sendLocked(c)
	return nil
}

func (h *Host) sendLocked(c Command) {
	env, err := EncodeCommand(h.session.ScreenID, c)
	if err != nil {
		h.logger.Error("encode command", "type", c.Type, "error", err)
		return
	}
	if !h.transport.SendCommand(env) {
		h.logger.Warn("command dropped", "type", c.Type, "screen_id", h.session.ScreenID)
	}
}

// Run consumes sandbox events until the context is cancelled or the
// transport closes. Call it once, from its own goroutine.
func (h *Host) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-h.transport.Events():
			if !ok {
				return
			}
			h.handleEvent(env)
		}
	}
}

func (h *Host) handleEvent(env Envelope) {
	h.mu.Lock()

	if h.session == nil || env.ScreenID != h.session.ScreenID {
		h.mu.Unlock()
		h.logger.Debug("event for inactive screen dropped", "screen_id", env.ScreenID, "type", env.Type)
		return
	}
	e, err := DecodeEvent(env)
	if err != nil {
		h.mu.Unlock()
		h.logger.Warn("malformed event dropped", "screen_id", env.ScreenID, "error", err)
		return
	}

	screenID := h.session.ScreenID
	switch e.Type {
	case EvtSelectionChanged:
		h.session.SetSelection(e.Node)
	case EvtSelectionCleared:
		h.session.SetSelection(nil)
	case EvtDeleteRequested:
		// The sandbox never removes nodes on its own: it asks, the host
		// records a delete_node patch and forwards it back down.
		if err := h.pushLocked(patch.Patch{Op: patch.OpDeleteNode, UID: e.UID}); err != nil {
			h.logger.Error("delete request rejected", "screen_id", screenID, "uid", e.UID, "error", err)
		}
	case EvtReady, EvtHoverChanged, EvtPatchApplied:
		// State already lives sandbox-side; observers get them via the hook.
	}
	hook := h.hook
	h.mu.Unlock()

	if hook != nil {
		hook(screenID, e)
	}
}
