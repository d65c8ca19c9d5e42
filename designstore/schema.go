package designstore

// Schema contains the complete DDL for the design store tables.
const Schema = `
-- Screens: the authoritative serialized documents the editor reconciles into
CREATE TABLE IF NOT EXISTS screens (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    html        TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'draft',
    width       INTEGER NOT NULL DEFAULT 0,
    height      INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_screens_status ON screens(status);
CREATE INDEX IF NOT EXISTS idx_screens_updated ON screens(updated_at DESC);
`
