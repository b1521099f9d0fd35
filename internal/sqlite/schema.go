// Package sqlite persists a configuration tree as one row per serialized key.
package sqlite

// Schema DDL.
const (
	createEntries = `CREATE TABLE IF NOT EXISTS entries (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_by TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createEntryHistory = `CREATE TABLE IF NOT EXISTS entry_history (
    history_id TEXT PRIMARY KEY,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    changed_by TEXT NOT NULL,
    created_at TEXT NOT NULL
);`
)

const idxEntryHistoryKey = `CREATE INDEX IF NOT EXISTS idx_entry_history_key ON entry_history(key, created_at);`

// schemaDDL lists the statements run when a database is opened.
var schemaDDL = []string{
	createEntries,
	createEntryHistory,
	idxEntryHistoryKey,
}
