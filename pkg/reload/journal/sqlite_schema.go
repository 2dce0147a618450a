package journal

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the journal tables. Timestamps and durations are stored as
// integer nanoseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS reloads (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    kind TEXT NOT NULL,
    file TEXT NOT NULL,
    hash TEXT,
    status TEXT NOT NULL,
    error TEXT,
    duration INTEGER NOT NULL,
    retagged INTEGER NOT NULL DEFAULT 0,
    migrated INTEGER NOT NULL DEFAULT 0,
    timestamp INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reloads_timestamp ON reloads(timestamp);
CREATE INDEX IF NOT EXISTS idx_reloads_symbol ON reloads(symbol);
CREATE INDEX IF NOT EXISTS idx_reloads_status ON reloads(status);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion reads the newest schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertRecord = `
INSERT INTO reloads (
    id, symbol, kind, file, hash, status, error,
    duration, retagged, migrated, timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectColumns = `id, symbol, kind, file, hash, status, error, duration, retagged, migrated, timestamp`
