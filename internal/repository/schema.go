package repository

// Schema definitions for the Iris artifact store.
// Compatible with both SQLite and PostgreSQL.

// created_at holds Unix nanoseconds so ordering is identical on both drivers.
const schemaArtifacts = `
CREATE TABLE IF NOT EXISTS artifacts (
    name TEXT NOT NULL,
    version TEXT NOT NULL,
    checksum TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    PRIMARY KEY (name, version)
);

CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(name, created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaArtifacts,
	}
}
