package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the SQLite results database.
const schemaV1 = `
-- One row per runner invocation
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);

-- One row per scenario per simulated year
CREATE TABLE IF NOT EXISTS yearly_records (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    scenario TEXT NOT NULL,
    year INTEGER NOT NULL,

    -- Headline metrics, duplicated out of record_json for ad hoc queries
    total_smes INTEGER NOT NULL,
    mean_revenue REAL NOT NULL,
    formal_share REAL NOT NULL,
    financing_access_rate REAL NOT NULL,
    tech_adoption_rate REAL NOT NULL,
    exporter_rate REAL NOT NULL,

    record_json TEXT NOT NULL,
    PRIMARY KEY (run_id, scenario, year)
);
CREATE INDEX IF NOT EXISTS idx_yearly_scenario ON yearly_records(scenario, year);

-- Schema version
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema initializes the database schema.
// It creates all tables on a fresh database; an existing database is
// integrity-checked and migrated.
func InitSchema(ctx context.Context, db *sql.DB) error {
	currentVersion, err := getSchemaVersion(ctx, db)
	if err != nil {
		// schema_version doesn't exist yet
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}

	if err := ValidateIntegrity(ctx, db); err != nil {
		return fmt.Errorf("database integrity check failed: %w", err)
	}

	if currentVersion > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, SchemaVersion)
	}
	if currentVersion < SchemaVersion {
		if err := migrateSchema(ctx, db, currentVersion); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	return nil
}

// getSchemaVersion returns the current schema version from the database.
// Returns an error if the schema_version table doesn't exist.
func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}

// migrateSchema applies migrations from currentVersion to SchemaVersion.
func migrateSchema(ctx context.Context, db *sql.DB, currentVersion int) error {
	// Only v1 exists; a version row of 0 means the tables were never created.
	if currentVersion == 0 {
		return createSchema(ctx, db)
	}
	return nil
}

// ValidateIntegrity fails when SQLite reports page corruption or a
// yearly_records row whose run no longer exists.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check`).Scan(&result); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("quick_check reported %q", result)
	}

	var orphans int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM yearly_records r
		LEFT JOIN runs ON runs.id = r.run_id
		WHERE runs.id IS NULL`).Scan(&orphans)
	if err != nil {
		return fmt.Errorf("count orphaned records: %w", err)
	}
	if orphans > 0 {
		return fmt.Errorf("%d yearly records reference missing runs", orphans)
	}
	return nil
}
