package patchlog

import (
	"github.com/dukes-snr/EazyUi-sub001/editable"
)

// Session is one edit-mode activation: exactly one exists while a screen is
// being edited. Created on entering edit mode, mutated by push/undo/redo,
// flushed via Rebuild into the design store on exit or screen switch, then
// discarded.
type Session struct {
	ScreenID string
	Log      *Log

	// selection mirrors the sandbox's last selection-changed descriptor so
	// host surfaces (HTTP, MCP) can report it without a round-trip.
	selection *editable.Node
}

// NewSession starts a session for a screen over its current HTML.
func NewSession(screenID, baseHTML string) *Session {
	return &Session{
		ScreenID: screenID,
		Log:      New(baseHTML),
	}
}

// HasEdits reports whether any patch was ever recorded, undone or not. A
// session with edits flushes on exit even when the cursor is back at zero;
// the rebuild then equals the base and the write-back is harmless.
func (s *Session) HasEdits() bool {
	return s.Log.Len() > 0
}

// SetSelection stores the latest descriptor from the sandbox. nil clears.
func (s *Session) SetSelection(d *editable.Node) {
	s.selection = d
}

// Selection returns the mirrored descriptor, or nil when nothing is
// selected.
func (s *Session) Selection() *editable.Node {
	return s.selection
}

// ClearSelectionIf drops the mirror when it references the given uid. Used
// after delete_node so host state never points at a removed node.
func (s *Session) ClearSelectionIf(uid string) {
	if s.selection != nil && s.selection.UID == uid {
		s.selection = nil
	}
}
