// Package patchlog implements the host-side edit history: an ordered log of
// patches over a base document with cursor-based undo/redo and deterministic
// rebuild. The log never mutates the base; state at any cursor is a pure
// left-fold of the patch prefix over it.
package patchlog

import (
	"github.com/dukes-snr/EazyUi-sub001/dom"
	"github.com/dukes-snr/EazyUi-sub001/patch"
)

// Log is the edit history state machine: {baseHTML, patches, cursor} with
// cursor in [0, len(patches)].
type Log struct {
	baseHTML string
	patches  []patch.Patch
	cursor   int
}

// New creates an empty log over a base document.
func New(baseHTML string) *Log {
	return &Log{baseHTML: baseHTML}
}

// Push records a new patch at the cursor. Any redoable tail is discarded
// first; history is linear.
func (l *Log) Push(p patch.Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	l.patches = append(l.patches[:l.cursor], p)
	l.cursor = len(l.patches)
	return nil
}

// Undo steps the cursor back. Returns false at the beginning of history.
// Callers reload the document from Rebuild rather than applying an inverse:
// patches are not invertible (delete_node discards subtree state).
func (l *Log) Undo() bool {
	if l.cursor == 0 {
		return false
	}
	l.cursor--
	return true
}

// Redo steps the cursor forward. Returns false when no tail is available.
func (l *Log) Redo() bool {
	if l.cursor >= len(l.patches) {
		return false
	}
	l.cursor++
	return true
}

// CanUndo reports whether Undo would move the cursor.
func (l *Log) CanUndo() bool { return l.cursor > 0 }

// CanRedo reports whether Redo would move the cursor.
func (l *Log) CanRedo() bool { return l.cursor < len(l.patches) }

// Cursor returns the current cursor position.
func (l *Log) Cursor() int { return l.cursor }

// Len returns the total number of recorded patches, including any redoable
// tail beyond the cursor.
func (l *Log) Len() int { return len(l.patches) }

// BaseHTML returns the base document.
func (l *Log) BaseHTML() string { return l.baseHTML }

// Patches returns a copy of the full patch list.
func (l *Log) Patches() []patch.Patch {
	out := make([]patch.Patch, len(l.patches))
	copy(out, l.patches)
	return out
}

// Rebuild replays patches[0:cursor] over the base document and returns the
// resulting HTML. Total and pure: a patch addressing a uid an earlier patch
// removed is a silent no-op, a cursor of zero returns the base verbatim, and
// an empty base yields an empty result, which callers treat as "no pending
// change".
func (l *Log) Rebuild() string {
	return l.RebuildAt(l.cursor)
}

// RebuildAt replays a prefix of length k (clamped to the valid range).
func (l *Log) RebuildAt(k int) string {
	if k < 0 {
		k = 0
	}
	if k > len(l.patches) {
		k = len(l.patches)
	}
	if l.baseHTML == "" {
		return ""
	}
	if k == 0 {
		return l.baseHTML
	}

	m := dom.NewStringMutator(l.baseHTML)
	for _, p := range l.patches[:k] {
		// Validated on Push; missing uids are no-ops by contract.
		patch.Apply(m, p)
	}
	out, err := m.HTML()
	if err != nil {
		return l.baseHTML
	}
	return out
}
