// Package editor is the main orchestrator: it owns the design store, the
// host↔sandbox bridge, the audit log, and at most one live edit session.
//
// Entering edit mode loads a screen, sanitizes it, stamps uids, and boots a
// sandbox agent over the bridge. Edits travel as patches through the session
// log; exit or screen switch rebuilds the document and reconciles it into
// the store.
//
// Usage:
//
//	ed, err := editor.New(cfg, logger)
//	defer ed.Close()
//	ed.Start(ctx)
//	ed.RegisterHTTP(r)
//	ed.RegisterMCP(mcpServer)
package editor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukes-snr/EazyUi-sub001/agent"
	"github.com/dukes-snr/EazyUi-sub001/bridge"
	"github.com/dukes-snr/EazyUi-sub001/dbopen"
	"github.com/dukes-snr/EazyUi-sub001/designstore"
	"github.com/dukes-snr/EazyUi-sub001/dom"
	"github.com/dukes-snr/EazyUi-sub001/editable"
	"github.com/dukes-snr/EazyUi-sub001/idgen"
	"github.com/dukes-snr/EazyUi-sub001/observability"
	"github.com/dukes-snr/EazyUi-sub001/patch"
	"github.com/dukes-snr/EazyUi-sub001/sanitize"
	"github.com/dukes-snr/EazyUi-sub001/trace"
	"github.com/dukes-snr/EazyUi-sub001/vtq"
	"github.com/dukes-snr/EazyUi-sub001/watch"
)

// LayoutProber renders a document to refresh layout geometry. The preview
// prober implements it; static resolvers don't need to.
type LayoutProber interface {
	Probe(ctx context.Context, html string) error
}

// Editor is the main orchestrator.
type Editor struct {
	store      *designstore.Store
	audit      *observability.EventLogger
	auditDB    *sql.DB
	traceStore *trace.Store
	retry      *vtq.Q
	host       *bridge.Host
	transport  *bridge.InProc
	logger     *slog.Logger
	config     *Config
	resolver   editable.StyleResolver
	gen        idgen.Generator

	mu          sync.Mutex
	agent       *agent.Agent
	agentCancel context.CancelFunc

	lifecycle context.Context
}

// Option configures an Editor.
type Option func(*Editor)

// WithResolver attaches a layout resolver for descriptor rects and computed
// style. When it also implements LayoutProber, the editor probes on session
// start and after every history move.
func WithResolver(r editable.StyleResolver) Option {
	return func(e *Editor) { e.resolver = r }
}

// WithIDGenerator sets the uid generator used for stamping.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(e *Editor) { e.gen = gen }
}

// New creates an Editor. Opens the design and audit databases.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Editor, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	auditDB, err := dbopen.Open(cfg.AuditDBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(observability.Schema),
	)
	if err != nil {
		return nil, fmt.Errorf("editor: open audit store: %w", err)
	}

	// SQL tracing: the trace store writes to the audit database over the
	// raw driver, the design store routes through "sqlite-trace".
	var traceStore *trace.Store
	var storeOpts []dbopen.Option
	if cfg.TraceSQL {
		traceStore = trace.NewStore(auditDB)
		if err := traceStore.Init(); err != nil {
			auditDB.Close()
			return nil, fmt.Errorf("editor: init sql traces: %w", err)
		}
		trace.SetStore(traceStore)
		storeOpts = append(storeOpts, dbopen.WithDriver("sqlite-trace"))
	}

	store, err := designstore.Open(cfg.DBPath, storeOpts...)
	if err != nil {
		auditDB.Close()
		return nil, fmt.Errorf("editor: open design store: %w", err)
	}

	e := &Editor{
		store:      store,
		audit:      observability.NewEventLogger(auditDB),
		auditDB:    auditDB,
		traceStore: traceStore,
		transport:  bridge.NewInProc(cfg.Bridge.Buffer),
		logger:     logger,
		config:     cfg,
		gen:        idgen.ElementUID,
		lifecycle:  context.Background(),
	}
	for _, o := range opts {
		o(e)
	}

	// Failed reconciliations land in a retry queue in the audit database so
	// dirty edits survive transient write errors and restarts.
	e.retry = vtq.New(auditDB, vtq.Options{
		Queue:       "reconcile",
		Visibility:  30 * time.Second,
		MaxAttempts: 10,
		Logger:      logger,
	})
	if err := e.retry.EnsureTable(context.Background()); err != nil {
		e.auditDB.Close()
		e.store.Close()
		return nil, fmt.Errorf("editor: init retry queue: %w", err)
	}

	e.host = bridge.NewHost(e.transport,
		bridge.WithLogger(logger),
		bridge.WithEventHook(e.onEvent),
	)
	return e, nil
}

// Start launches the host event loop. Call once before serving requests.
func (e *Editor) Start(ctx context.Context) {
	e.lifecycle = ctx
	go e.host.Run(ctx)
	go e.retry.Run(ctx, e.retryReconcile)
	if e.config.AuditRetentionDays > 0 {
		go e.auditJanitor(ctx)
	}
	e.logger.Info("editor: started", "db", e.config.DBPath)
}

// Close exits any live session and closes databases. Idempotent enough for
// deferred use.
func (e *Editor) Close() error {
	if err := e.ExitEdit(context.Background()); err != nil && err != bridge.ErrNoSession {
		e.logger.Warn("editor: flush on close", "error", err)
	}
	e.transport.Close()
	if e.traceStore != nil {
		trace.SetStore(nil)
		e.traceStore.Close()
	}
	e.auditDB.Close()
	return e.store.Close()
}

// CleanupAudit deletes audit events older than the configured retention.
// Returns the number of rows removed; a no-op when retention is unset.
func (e *Editor) CleanupAudit(ctx context.Context) (int64, error) {
	return e.audit.Cleanup(ctx, e.config.AuditRetentionDays)
}

// auditJanitor applies the retention policy periodically for long-running
// daemons.
func (e *Editor) auditJanitor(ctx context.Context) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := e.CleanupAudit(ctx)
			if err != nil {
				e.logger.Warn("editor: audit cleanup", "error", err)
				continue
			}
			if n > 0 {
				e.logger.Info("editor: audit events expired",
					"removed", n, "retention_days", e.config.AuditRetentionDays)
			}
		}
	}
}

// Store returns the underlying design store (testing, admin).
func (e *Editor) Store() *designstore.Store { return e.store }

// Audit returns the edit event logger.
func (e *Editor) Audit() *observability.EventLogger { return e.audit }

// SessionState is a host-side snapshot of the live session.
type SessionState struct {
	ScreenID  string         `json:"screen_id"`
	Cursor    int            `json:"cursor"`
	Patches   int            `json:"patches"`
	CanUndo   bool           `json:"can_undo"`
	CanRedo   bool           `json:"can_redo"`
	Selection *editable.Node `json:"selection,omitempty"`
}

// State returns the live session snapshot, or nil outside edit mode.
func (e *Editor) State() *SessionState {
	s := e.host.Session()
	if s == nil {
		return nil
	}
	return &SessionState{
		ScreenID:  s.ScreenID,
		Cursor:    s.Log.Cursor(),
		Patches:   s.Log.Len(),
		CanUndo:   s.Log.CanUndo(),
		CanRedo:   s.Log.CanRedo(),
		Selection: s.Selection(),
	}
}

// EnterEdit starts a session on a screen. Fails when one is already live;
// use SwitchEdit to flush and move.
func (e *Editor) EnterEdit(ctx context.Context, screenID string) (*SessionState, error) {
	scr, err := e.store.GetScreen(ctx, screenID)
	if err != nil {
		return nil, err
	}
	if scr == nil {
		return nil, fmt.Errorf("editor: screen %q not found", screenID)
	}

	base := scr.HTML
	if e.config.sanitizeOnEnter() {
		base = sanitize.HTML(base)
	}
	base, stamped := editable.EnsureUIDs(base, e.gen)

	if _, err := e.host.StartSession(screenID, base); err != nil {
		return nil, err
	}

	e.probe(ctx, base)

	agentCtx, cancel := context.WithCancel(e.lifecycle)
	a := agent.New(agent.Config{
		ScreenID:    screenID,
		HTML:        base,
		Transport:   e.transport,
		Logger:      e.logger,
		Gen:         e.gen,
		Resolver:    e.resolver,
		FrameRadius: e.config.Frame.CornerRadius,
	})
	go a.Run(agentCtx)

	e.mu.Lock()
	e.agent = a
	e.agentCancel = cancel
	e.mu.Unlock()

	e.audit.LogEvent(ctx, observability.EditEvent{
		EventType: observability.EventEditEnter,
		ScreenID:  screenID,
		Success:   true,
	})
	e.logger.Info("editor: edit mode entered", "screen_id", screenID, "uids_stamped", stamped)
	return e.State(), nil
}

// ExitEdit flushes the live session into the store and tears it down.
// Returns bridge.ErrNoSession outside edit mode.
func (e *Editor) ExitEdit(ctx context.Context) error {
	screenID, html, dirty, err := e.host.EndSession()
	if err != nil {
		return err
	}
	e.stopAgent()

	// An empty rebuild means the base itself was empty: nothing to write.
	if dirty && html != "" {
		if err := e.store.UpdateScreen(ctx, screenID, html); err != nil {
			e.audit.LogEvent(ctx, observability.EditEvent{
				EventType: observability.EventReconcile,
				ScreenID:  screenID,
				Success:   false,
				Details:   fmt.Sprintf(`{"error":%q}`, err.Error()),
			})
			e.queueReconcile(ctx, screenID, html)
			return fmt.Errorf("editor: reconcile %s: %w", screenID, err)
		}
		e.audit.LogEvent(ctx, observability.EditEvent{
			EventType: observability.EventReconcile,
			ScreenID:  screenID,
			Success:   true,
		})
	}
	e.audit.LogEvent(ctx, observability.EditEvent{
		EventType: observability.EventEditExit,
		ScreenID:  screenID,
		Success:   true,
	})
	e.logger.Info("editor: edit mode exited", "screen_id", screenID, "dirty", dirty)
	return nil
}

// SwitchEdit flushes the current session (when one exists) and enters a new
// one on another screen.
func (e *Editor) SwitchEdit(ctx context.Context, screenID string) (*SessionState, error) {
	if err := e.ExitEdit(ctx); err != nil && err != bridge.ErrNoSession {
		return nil, err
	}
	return e.EnterEdit(ctx, screenID)
}

// PushPatch records a patch and forwards it to the sandbox.
func (e *Editor) PushPatch(ctx context.Context, p patch.Patch) error {
	if err := e.host.PushPatch(p); err != nil {
		return err
	}
	s := e.host.Session()
	screenID := ""
	if s != nil {
		screenID = s.ScreenID
	}
	e.audit.LogEvent(ctx, observability.EditEvent{
		EventType: observability.EventPatchPush,
		ScreenID:  screenID,
		UID:       p.UID,
		Op:        string(p.Op),
		Success:   true,
	})
	return nil
}

// Undo steps the session history back. Returns false at the floor.
func (e *Editor) Undo(ctx context.Context) (bool, error) {
	moved, err := e.host.Undo()
	if err != nil || !moved {
		return moved, err
	}
	e.afterHistoryMove(ctx, observability.EventUndo)
	return true, nil
}

// Redo steps the session history forward. Returns false at the tip.
func (e *Editor) Redo(ctx context.Context) (bool, error) {
	moved, err := e.host.Redo()
	if err != nil || !moved {
		return moved, err
	}
	e.afterHistoryMove(ctx, observability.EventRedo)
	return true, nil
}

func (e *Editor) afterHistoryMove(ctx context.Context, eventType string) {
	s := e.host.Session()
	if s == nil {
		return
	}
	e.probe(ctx, s.Log.Rebuild())
	e.audit.LogEvent(ctx, observability.EditEvent{
		EventType: eventType,
		ScreenID:  s.ScreenID,
		Success:   true,
	})
}

// SelectUID selects a node in the sandbox.
func (e *Editor) SelectUID(uid string) error { return e.host.SelectUID(uid) }

// SelectParent moves the selection one editable ancestor up.
func (e *Editor) SelectParent() error { return e.host.SelectParent() }

// SelectContainer selects the screen container.
func (e *Editor) SelectContainer() error { return e.host.SelectContainer() }

// ClearSelection drops the selection.
func (e *Editor) ClearSelection() error { return e.host.ClearSelection() }

// DeleteSelected asks the sandbox to request deletion of its selection.
func (e *Editor) DeleteSelected() error { return e.host.DeleteSelected() }

// QuerySelector matches a CSS selector against the live session's current
// document and returns the uids of matching elements. Matches without a uid
// (non-editable nodes) are skipped.
func (e *Editor) QuerySelector(selector string) ([]string, error) {
	s := e.host.Session()
	if s == nil {
		return nil, bridge.ErrNoSession
	}
	root := dom.ParseLenient(s.Log.Rebuild())
	var uids []string
	for _, n := range dom.QueryAll(root, selector) {
		if uid := dom.UID(n); uid != "" {
			uids = append(uids, uid)
		}
	}
	return uids, nil
}

// PointerMove forwards a pointer position.
func (e *Editor) PointerMove(path dom.NodePath) error { return e.host.PointerMove(path) }

// Click forwards a click.
func (e *Editor) Click(path dom.NodePath) error { return e.host.Click(path) }

// SaveScreen writes screen HTML from an outside pipeline (generation,
// import). The same sanitization applied on edit entry runs here so the
// store never holds scripts.
func (e *Editor) SaveScreen(ctx context.Context, id, html string, opts ...designstore.UpdateOption) error {
	if s := e.host.Session(); s != nil && s.ScreenID == id {
		return fmt.Errorf("editor: screen %q has a live edit session", id)
	}
	if e.config.sanitizeOnEnter() {
		html = sanitize.HTML(html)
	}
	return e.store.UpdateScreen(ctx, id, html, opts...)
}

// RemoveScreen deletes a screen from the store.
func (e *Editor) RemoveScreen(ctx context.Context, id string) error {
	if s := e.host.Session(); s != nil && s.ScreenID == id {
		return fmt.Errorf("editor: screen %q has a live edit session", id)
	}
	if err := e.store.RemoveScreen(ctx, id); err != nil {
		return err
	}
	e.audit.LogEvent(ctx, observability.EditEvent{
		EventType: observability.EventScreenRemove,
		ScreenID:  id,
		Success:   true,
	})
	return nil
}

type reconcileJob struct {
	ScreenID string `json:"screen_id"`
	HTML     string `json:"html"`
}

func (e *Editor) queueReconcile(ctx context.Context, screenID, html string) {
	payload, err := json.Marshal(reconcileJob{ScreenID: screenID, HTML: html})
	if err != nil {
		e.logger.Error("editor: queue reconcile", "screen_id", screenID, "error", err)
		return
	}
	id := idgen.Prefixed("rcl_", idgen.Default)()
	if err := e.retry.Publish(ctx, id, payload); err != nil {
		e.logger.Error("editor: queue reconcile", "screen_id", screenID, "error", err)
		return
	}
	e.logger.Warn("editor: reconcile queued for retry", "screen_id", screenID, "job_id", id)
}

// retryReconcile drains queued reconciliations. A screen with a live session
// is skipped until the session ends; its exit flush supersedes the queued
// HTML anyway, so the stale job is dropped.
func (e *Editor) retryReconcile(ctx context.Context, job *vtq.Job) error {
	var r reconcileJob
	if err := json.Unmarshal(job.Payload, &r); err != nil {
		e.logger.Error("editor: bad reconcile job, dropping", "job_id", job.ID, "error", err)
		return nil
	}
	if s := e.host.Session(); s != nil && s.ScreenID == r.ScreenID {
		return nil
	}
	if err := e.store.UpdateScreen(ctx, r.ScreenID, r.HTML); err != nil {
		return err
	}
	e.audit.LogEvent(ctx, observability.EditEvent{
		EventType: observability.EventReconcile,
		ScreenID:  r.ScreenID,
		Success:   true,
		Details:   fmt.Sprintf(`{"retried":true,"attempts":%d}`, job.Attempts),
	})
	return nil
}

// WatchScreens polls the design database and calls fn when another process
// writes to the screens table. The watcher only reports; live sessions are
// unaffected because the store is not re-read until the next EnterEdit.
func (e *Editor) WatchScreens(ctx context.Context, debounce time.Duration, fn func() error) *watch.Watcher {
	w := watch.New(e.store.DB, watch.Options{
		Interval: time.Second,
		Debounce: debounce,
		Detector: watch.MaxColumnDetector("screens", "updated_at"),
		Logger:   e.logger,
	})
	go w.OnChange(ctx, fn)
	return w
}

func (e *Editor) probe(ctx context.Context, html string) {
	prober, ok := e.resolver.(LayoutProber)
	if !ok || html == "" {
		return
	}
	if err := prober.Probe(ctx, html); err != nil {
		e.logger.Warn("editor: layout probe failed", "error", err)
	}
}

func (e *Editor) stopAgent() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.agentCancel != nil {
		e.agentCancel()
		e.agentCancel = nil
	}
	e.agent = nil
}

// onEvent observes decoded sandbox events after the host has handled them.
func (e *Editor) onEvent(screenID string, ev bridge.Event) {
	switch ev.Type {
	case bridge.EvtDeleteRequested:
		// The host has already pushed the delete_node patch; record it.
		e.audit.LogEvent(e.lifecycle, observability.EditEvent{
			EventType: observability.EventPatchPush,
			ScreenID:  screenID,
			UID:       ev.UID,
			Op:        string(patch.OpDeleteNode),
			Success:   true,
		})
	case bridge.EvtSelectionChanged:
		e.logger.Debug("editor: selection changed", "screen_id", screenID, "uid", ev.Node.UID)
	}
}
