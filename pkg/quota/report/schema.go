package report

// SchemaVersion is the current snapshot database schema version.
const SchemaVersion = 1

// Schema creates the snapshot tables.
//
// taken_at is stored as Unix nanoseconds so both drivers round-trip it
// without depending on their time formatting.
const Schema = `
CREATE TABLE IF NOT EXISTS quota_snapshots (
    id TEXT PRIMARY KEY,
    taken_at INTEGER NOT NULL,
    tracked TEXT NOT NULL,
    entries TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quota_snapshots_taken_at ON quota_snapshots(taken_at);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

// GetSchemaVersion returns the highest recorded schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version`
