package repository

// Schema definitions for the Harrier database.
// Compatible with both SQLite and PostgreSQL.

const schemaRuns = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
    id TEXT PRIMARY KEY,
    region TEXT NOT NULL,
    source_file TEXT NOT NULL,
    record_count INTEGER NOT NULL,
    anomaly_count INTEGER NOT NULL,
    fraud_count INTEGER NOT NULL,
    branch_summary TEXT NOT NULL,
    fraud_types TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_region ON pipeline_runs(region);
CREATE INDEX IF NOT EXISTS idx_runs_completed ON pipeline_runs(completed_at);
`

const schemaAdvisories = `
CREATE TABLE IF NOT EXISTS advisories (
    id TEXT PRIMARY KEY,
    branch TEXT NOT NULL,
    matched_region TEXT NOT NULL,
    advisory_content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_advisories_branch ON advisories(branch);
CREATE INDEX IF NOT EXISTS idx_advisories_created ON advisories(created_at);
`

const schemaDispatches = `
CREATE TABLE IF NOT EXISTS dispatches (
    id TEXT PRIMARY KEY,
    advisory_id TEXT NOT NULL,
    branch TEXT NOT NULL,
    recipient TEXT,
    status TEXT NOT NULL,
    detail TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dispatches_branch ON dispatches(branch);
CREATE INDEX IF NOT EXISTS idx_dispatches_advisory ON dispatches(advisory_id);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRuns,
		schemaAdvisories,
		schemaDispatches,
	}
}
