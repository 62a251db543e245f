package audit

// SchemaVersion is the current audit database schema version.
const SchemaVersion = 1

// Schema creates the audit log tables. Timestamps are stored as fixed-width UTC
// text (see timeLayout) so they sort and compare lexically.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_log (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,

    event_id TEXT NOT NULL,
    authority_id TEXT NOT NULL,
    version INTEGER NOT NULL,

    category_id TEXT NOT NULL,
    indicator_id TEXT NOT NULL,
    trigger_id TEXT NOT NULL,
    severity TEXT NOT NULL,

    fired_at TEXT NOT NULL,
    suppressed BOOLEAN NOT NULL,
    suppression_reason TEXT,

    outcome TEXT NOT NULL,
    error TEXT,

    explanation TEXT NOT NULL,
    recorded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_fired_at ON audit_log(fired_at);
CREATE INDEX IF NOT EXISTS idx_audit_authority ON audit_log(authority_id);
CREATE INDEX IF NOT EXISTS idx_audit_trigger ON audit_log(trigger_id);
CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_log(event_id);

CREATE TRIGGER IF NOT EXISTS audit_log_no_update
BEFORE UPDATE ON audit_log
BEGIN
    SELECT RAISE(ABORT, 'audit_log is append-only');
END;

CREATE TRIGGER IF NOT EXISTS audit_log_no_delete
BEFORE DELETE ON audit_log
BEGIN
    SELECT RAISE(ABORT, 'audit_log is append-only');
END;
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertEntry = `
INSERT INTO audit_log (
    id, event_id, authority_id, version,
    category_id, indicator_id, trigger_id, severity,
    fired_at, suppressed, suppression_reason,
    outcome, error, explanation, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectColumns = `
    id, event_id, authority_id, version,
    category_id, indicator_id, trigger_id, severity,
    fired_at, suppressed, suppression_reason,
    outcome, error, explanation, recorded_at
`
