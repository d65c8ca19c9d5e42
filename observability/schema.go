package observability

// Schema contains the DDL for the edit audit tables. Kept in its own
// database, separate from the design store, to avoid write contention during
// patch bursts.
const Schema = `
-- Edit events: one row per business-level editor operation
CREATE TABLE IF NOT EXISTS edit_events (
    event_id    TEXT PRIMARY KEY,
    event_type  TEXT NOT NULL,
    screen_id   TEXT NOT NULL,
    uid         TEXT NOT NULL DEFAULT '',
    op          TEXT NOT NULL DEFAULT '',
    details     TEXT NOT NULL DEFAULT '',
    success     INTEGER NOT NULL DEFAULT 1,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edit_events_screen ON edit_events(screen_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_edit_events_type ON edit_events(event_type);
CREATE INDEX IF NOT EXISTS idx_edit_events_time ON edit_events(created_at DESC);
`
