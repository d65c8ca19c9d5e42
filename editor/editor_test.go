package editor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dukes-snr/EazyUi-sub001/bridge"
	"github.com/dukes-snr/EazyUi-sub001/observability"
	"github.com/dukes-snr/EazyUi-sub001/patch"
)

const testScreen = `<div class="screen"><p>Hello</p><button>Go</button></div>`

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	dir := t.TempDir()
	n := 0
	gen := func() string {
		n++
		return fmt.Sprintf("u%d", n)
	}
	cfg := &Config{
		DBPath:      filepath.Join(dir, "design.db"),
		AuditDBPath: filepath.Join(dir, "audit.db"),
	}
	ed, err := New(cfg, nil, WithIDGenerator(gen))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ed.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ed.Start(ctx)
	return ed
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEditFlow(t *testing.T) {
	ed := newTestEditor(t)
	ctx := context.Background()

	if err := ed.SaveScreen(ctx, "scr_1", testScreen); err != nil {
		t.Fatal(err)
	}

	state, err := ed.EnterEdit(ctx, "scr_1")
	if err != nil {
		t.Fatal(err)
	}
	if state.ScreenID != "scr_1" || state.Patches != 0 {
		t.Fatalf("state = %+v", state)
	}

	// uids are stamped in document order: container, then children.
	if err := ed.PushPatch(ctx, patch.Patch{Op: patch.OpSetText, UID: "u2", Text: "Bye"}); err != nil {
		t.Fatal(err)
	}
	if s := ed.State(); s.Patches != 1 || !s.CanUndo {
		t.Fatalf("after push: %+v", s)
	}

	if err := ed.ExitEdit(ctx); err != nil {
		t.Fatal(err)
	}
	if ed.State() != nil {
		t.Fatal("session survived exit")
	}

	scr, err := ed.Store().GetScreen(ctx, "scr_1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(scr.HTML, ">Bye<") || !strings.Contains(scr.HTML, `data-uid="u2"`) {
		t.Fatalf("reconciled html = %s", scr.HTML)
	}
}

func TestEnterEdit_MissingScreen(t *testing.T) {
	ed := newTestEditor(t)
	if _, err := ed.EnterEdit(context.Background(), "nope"); err == nil {
		t.Fatal("missing screen accepted")
	}
}

func TestEnterEdit_SingleSession(t *testing.T) {
	ed := newTestEditor(t)
	ctx := context.Background()
	ed.SaveScreen(ctx, "scr_1", testScreen)
	ed.SaveScreen(ctx, "scr_2", `<div class="screen"><span>Two</span></div>`)

	if _, err := ed.EnterEdit(ctx, "scr_1"); err != nil {
		t.Fatal(err)
	}
	if _, err := ed.EnterEdit(ctx, "scr_2"); err == nil {
		t.Fatal("second concurrent session accepted")
	}

	// Switching flushes the first screen before moving.
	if err := ed.PushPatch(ctx, patch.Patch{Op: patch.OpSetText, UID: "u2", Text: "Edited"}); err != nil {
		t.Fatal(err)
	}
	state, err := ed.SwitchEdit(ctx, "scr_2")
	if err != nil {
		t.Fatal(err)
	}
	if state.ScreenID != "scr_2" {
		t.Fatalf("switched state = %+v", state)
	}

	scr, _ := ed.Store().GetScreen(ctx, "scr_1")
	if !strings.Contains(scr.HTML, ">Edited<") {
		t.Fatalf("switch did not flush: %s", scr.HTML)
	}
}

func TestUndoRedo(t *testing.T) {
	ed := newTestEditor(t)
	ctx := context.Background()
	ed.SaveScreen(ctx, "scr_1", testScreen)
	ed.EnterEdit(ctx, "scr_1")

	ed.PushPatch(ctx, patch.Patch{Op: patch.OpSetText, UID: "u2", Text: "one"})
	ed.PushPatch(ctx, patch.Patch{Op: patch.OpSetText, UID: "u2", Text: "two"})

	moved, err := ed.Undo(ctx)
	if err != nil || !moved {
		t.Fatalf("undo: moved=%v err=%v", moved, err)
	}
	if s := ed.State(); s.Cursor != 1 || !s.CanRedo {
		t.Fatalf("after undo: %+v", s)
	}

	moved, err = ed.Redo(ctx)
	if err != nil || !moved {
		t.Fatalf("redo: moved=%v err=%v", moved, err)
	}
	if s := ed.State(); s.Cursor != 2 || s.CanRedo {
		t.Fatalf("after redo: %+v", s)
	}

	// Exhausted history reports false without error.
	ed.Undo(ctx)
	ed.Undo(ctx)
	if moved, err := ed.Undo(ctx); err != nil || moved {
		t.Fatalf("undo past floor: moved=%v err=%v", moved, err)
	}
}

func TestSelectionAndDeleteFlow(t *testing.T) {
	ed := newTestEditor(t)
	ctx := context.Background()
	ed.SaveScreen(ctx, "scr_1", testScreen)
	ed.EnterEdit(ctx, "scr_1")

	if err := ed.SelectUID("u2"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "selection mirror", func() bool {
		s := ed.State()
		return s != nil && s.Selection != nil && s.Selection.UID == "u2"
	})

	if err := ed.DeleteSelected(); err != nil {
		t.Fatal(err)
	}
	// delete_requested flows up, the host records a delete_node patch.
	waitFor(t, "delete patch", func() bool {
		s := ed.State()
		return s != nil && s.Patches == 1
	})

	if err := ed.ExitEdit(ctx); err != nil {
		t.Fatal(err)
	}
	scr, _ := ed.Store().GetScreen(ctx, "scr_1")
	if strings.Contains(scr.HTML, `data-uid="u2"`) {
		t.Fatalf("deleted node persisted: %s", scr.HTML)
	}
	if !strings.Contains(scr.HTML, `data-uid="u1"`) {
		t.Fatalf("container lost: %s", scr.HTML)
	}
}

func TestSaveScreen_Sanitizes(t *testing.T) {
	ed := newTestEditor(t)
	ctx := context.Background()

	err := ed.SaveScreen(ctx, "scr_1", `<div class="screen"><script>alert(1)</script><p onclick="x()">Hi</p></div>`)
	if err != nil {
		t.Fatal(err)
	}
	scr, _ := ed.Store().GetScreen(ctx, "scr_1")
	if strings.Contains(scr.HTML, "<script") || strings.Contains(scr.HTML, "onclick") {
		t.Fatalf("script survived save: %s", scr.HTML)
	}
	if !strings.Contains(scr.HTML, ">Hi</p>") {
		t.Fatalf("content lost: %s", scr.HTML)
	}
}

func TestSaveScreen_LockedDuringEdit(t *testing.T) {
	ed := newTestEditor(t)
	ctx := context.Background()
	ed.SaveScreen(ctx, "scr_1", testScreen)
	ed.EnterEdit(ctx, "scr_1")

	if err := ed.SaveScreen(ctx, "scr_1", "<div>clobber</div>"); err == nil {
		t.Fatal("save over a live session accepted")
	}
	if err := ed.RemoveScreen(ctx, "scr_1"); err == nil {
		t.Fatal("remove of a live session accepted")
	}
}

func TestAuditTrail(t *testing.T) {
	ed := newTestEditor(t)
	ctx := context.Background()
	ed.SaveScreen(ctx, "scr_1", testScreen)

	ed.EnterEdit(ctx, "scr_1")
	ed.PushPatch(ctx, patch.Patch{Op: patch.OpSetText, UID: "u2", Text: "x"})
	ed.Undo(ctx)
	ed.Redo(ctx)
	ed.ExitEdit(ctx)

	for _, eventType := range []string{
		observability.EventEditEnter,
		observability.EventPatchPush,
		observability.EventUndo,
		observability.EventRedo,
		observability.EventReconcile,
		observability.EventEditExit,
	} {
		events, err := ed.Audit().Query(ctx, observability.EventFilter{ScreenID: "scr_1", EventType: eventType})
		if err != nil {
			t.Fatal(err)
		}
		if len(events) == 0 {
			t.Errorf("no %s event recorded", eventType)
		}
	}
}

func TestExitEdit_NoSession(t *testing.T) {
	ed := newTestEditor(t)
	if err := ed.ExitEdit(context.Background()); err == nil {
		t.Fatal("exit without session must error")
	}
}

func TestQuerySelector(t *testing.T) {
	ed := newTestEditor(t)
	ctx := context.Background()

	if _, err := ed.QuerySelector("button"); err != bridge.ErrNoSession {
		t.Fatalf("query without session: %v", err)
	}

	if err := ed.SaveScreen(ctx, "scr_1", testScreen); err != nil {
		t.Fatal(err)
	}
	if _, err := ed.EnterEdit(ctx, "scr_1"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		selector string
		want     string
	}{
		{"button", "[u3]"},
		{".screen", "[u1]"},
		{"div p", "[u2]"},
		{"[data-uid]", "[u1 u2 u3]"},
		{"span", "[]"},
	}
	for _, tc := range cases {
		uids, err := ed.QuerySelector(tc.selector)
		if err != nil {
			t.Fatalf("%s: %v", tc.selector, err)
		}
		if got := fmt.Sprint(uids); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.selector, got, tc.want)
		}
	}
}

func TestAuditRetention(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		DBPath:             filepath.Join(dir, "design.db"),
		AuditDBPath:        filepath.Join(dir, "audit.db"),
		AuditRetentionDays: 30,
	}
	ed, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ed.Close() })
	ctx := context.Background()

	ed.Audit().LogEvent(ctx, observability.EditEvent{
		EventType: observability.EventPatchPush,
		ScreenID:  "scr_old",
		Success:   true,
		CreatedAt: time.Now().AddDate(0, 0, -60).Unix(),
	})
	ed.Audit().LogEvent(ctx, observability.EditEvent{
		EventType: observability.EventPatchPush,
		ScreenID:  "scr_new",
		Success:   true,
	})

	removed, err := ed.CleanupAudit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d", removed)
	}

	events, err := ed.Audit().Query(ctx, observability.EventFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ScreenID != "scr_new" {
		t.Fatalf("surviving events = %+v", events)
	}
}
