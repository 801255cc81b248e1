package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SchemaVersion is bumped whenever the DDL below changes shape.
const SchemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    seed INTEGER NOT NULL,
    size INTEGER NOT NULL,
    cycles INTEGER NOT NULL,
    config TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cycles (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    cycle INTEGER NOT NULL,
    final INTEGER NOT NULL DEFAULT 0,
    time_h REAL NOT NULL,
    temperature REAL NOT NULL,
    curing TEXT NOT NULL,
    alpha REAL NOT NULL,
    alpha_mass REAL NOT NULL,
    heat REAL NOT NULL,
    shrinkage REAL NOT NULL,
    water_left INTEGER NOT NULL,
    ph REAL NOT NULL,
    conductivity REAL NOT NULL,
    sulfate REAL NOT NULL,
    dissolved INTEGER NOT NULL,
    reacted INTEGER NOT NULL,
    diffusing INTEGER NOT NULL,
    paste_set INTEGER NOT NULL,
    PRIMARY KEY (run_id, cycle, final)
);
CREATE TABLE IF NOT EXISTS phase_counts (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    cycle INTEGER NOT NULL,
    final INTEGER NOT NULL DEFAULT 0,
    phase TEXT NOT NULL,
    voxels INTEGER NOT NULL,
    PRIMARY KEY (run_id, cycle, final, phase)
);
CREATE TABLE IF NOT EXISTS percolation (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    cycle INTEGER NOT NULL,
    final INTEGER NOT NULL DEFAULT 0,
    kind TEXT NOT NULL,
    axis TEXT NOT NULL,
    connected INTEGER NOT NULL,
    through INTEGER NOT NULL,
    total INTEGER NOT NULL,
    percolates INTEGER NOT NULL,
    PRIMARY KEY (run_id, cycle, final, kind, axis)
);
CREATE TABLE IF NOT EXISTS particles (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    cycle INTEGER NOT NULL,
    particle_id INTEGER NOT NULL,
    original INTEGER NOT NULL,
    remaining INTEGER NOT NULL,
    fraction REAL NOT NULL,
    PRIMARY KEY (run_id, cycle, particle_id)
);
CREATE INDEX IF NOT EXISTS idx_phase_counts_phase ON phase_counts(run_id, phase);
`

// InitSchema creates the report tables when missing and records the schema
// version. A database written by a newer schema is rejected.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version > SchemaVersion:
		return fmt.Errorf("report database has schema version %d, newer than %d", version, SchemaVersion)
	}
	return nil
}
