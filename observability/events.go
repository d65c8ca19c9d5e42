// Package observability records the editor's business events to SQLite.
// Persistence is non-blocking: a failing audit store logs via slog and never
// propagates into the edit path.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukes-snr/EazyUi-sub001/idgen"
)

// Event types recorded by the editor.
const (
	EventEditEnter    = "edit_enter"
	EventEditExit     = "edit_exit"
	EventPatchPush    = "patch_push"
	EventUndo         = "undo"
	EventRedo         = "redo"
	EventReconcile    = "reconcile"
	EventScreenRemove = "screen_remove"
)

// EditEvent is one business-level editor operation.
type EditEvent struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	ScreenID  string `json:"screen_id"`
	UID       string `json:"uid,omitempty"`     // target element, when one exists
	Op        string `json:"op,omitempty"`      // patch op for patch_push
	Details   string `json:"details,omitempty"` // free-form JSON
	Success   bool   `json:"success"`
	CreatedAt int64  `json:"created_at"`
}

// EventLogger writes edit events and manages retention cleanup.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
}

// EventLoggerOption configures an EventLogger.
type EventLoggerOption func(*EventLogger)

// WithEventIDGenerator sets a custom ID generator for event IDs.
func WithEventIDGenerator(gen idgen.Generator) EventLoggerOption {
	return func(l *EventLogger) { l.newID = gen }
}

// NewEventLogger creates a logger backed by the given audit database.
func NewEventLogger(db *sql.DB, opts ...EventLoggerOption) *EventLogger {
	l := &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// LogEvent records an edit event. Errors are logged, not returned.
func (l *EventLogger) LogEvent(ctx context.Context, e EditEvent) {
	if e.EventID == "" {
		e.EventID = l.newID()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO edit_events
			(event_id, event_type, screen_id, uid, op, details, success, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		e.EventID, e.EventType, e.ScreenID, e.UID, e.Op, e.Details, e.Success, e.CreatedAt)
	if err != nil {
		slog.Error("edit event log failed", "error", err, "event_type", e.EventType, "screen_id", e.ScreenID)
	}
}

// EventFilter controls Query results.
type EventFilter struct {
	ScreenID  string
	EventType string
	Limit     int // default 100
}

// Query retrieves edit events matching the filter, newest first.
func (l *EventLogger) Query(ctx context.Context, f EventFilter) ([]*EditEvent, error) {
	q := `SELECT event_id, event_type, screen_id, uid, op, details, success, created_at
		FROM edit_events WHERE 1=1`
	var args []any
	if f.ScreenID != "" {
		q += " AND screen_id = ?"
		args = append(args, f.ScreenID)
	}
	if f.EventType != "" {
		q += " AND event_type = ?"
		args = append(args, f.EventType)
	}
	q += " ORDER BY created_at DESC, event_id DESC LIMIT ?"
	limit := 100
	if f.Limit > 0 {
		limit = f.Limit
	}
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("observability: query edit events: %w", err)
	}
	defer rows.Close()

	var out []*EditEvent
	for rows.Next() {
		e := &EditEvent{}
		if err := rows.Scan(&e.EventID, &e.EventType, &e.ScreenID, &e.UID, &e.Op, &e.Details, &e.Success, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("observability: scan edit event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cleanup deletes events older than retentionDays. Zero or negative skips.
func (l *EventLogger) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()
	res, err := l.db.ExecContext(ctx, `DELETE FROM edit_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("observability: cleanup edit events: %w", err)
	}
	return res.RowsAffected()
}
