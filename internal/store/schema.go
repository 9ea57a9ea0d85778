package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    manifest_path TEXT NOT NULL,
    mode TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    declaration_count INTEGER NOT NULL,
    flagged_count INTEGER NOT NULL,
    flagged_size_mb REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
    run_id TEXT NOT NULL,
    line_number INTEGER NOT NULL,
    group_id TEXT NOT NULL,
    artifact TEXT NOT NULL,
    version TEXT NOT NULL,
    config_kind TEXT NOT NULL,
    raw_line TEXT,
    category TEXT NOT NULL,
    confidence INTEGER NOT NULL,
    size_mb REAL NOT NULL,
    flagged BOOLEAN NOT NULL,
    recommendation TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_manifest ON runs(manifest_path);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
`
