// Package report persists hydration cycle reports to a SQLite database:
// scalars per cycle, phase counts, percolation results and particle
// hydration tables.
package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"cemhyd/internal/hydration"
	"cemhyd/internal/percolation"
	"cemhyd/internal/phase"
)

// Store writes the reports of one or more runs.
type Store struct {
	db    *sql.DB
	runID int64
}

// Open opens or creates the database at path. ":memory:" keeps it in
// memory.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create report directory: %w", err)
		}
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open report database: %w", err)
	}
	db.SetMaxOpenConns(1) // one writer; ":memory:" is per connection

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize report schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for queries.
func (s *Store) DB() *sql.DB { return s.db }

// RunID returns the id of the run being recorded, or 0 before BeginRun.
func (s *Store) RunID() int64 { return s.runID }

// BeginRun records a new run and directs subsequent reports to it.
func (s *Store) BeginRun(ctx context.Context, size int, cfg hydration.Config) (int64, error) {
	blob, err := json.Marshal(cfg)
	if err != nil {
		return 0, fmt.Errorf("encode run config: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, seed, size, cycles, config) VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), cfg.Seed, size, cfg.Cycles, string(blob))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}
	s.runID = id
	return id, nil
}

// ObserveCycle implements hydration.Observer. Each report is written in one
// transaction.
func (s *Store) ObserveCycle(ctx context.Context, r hydration.CycleReport) (retErr error) {
	if s.runID == 0 {
		return fmt.Errorf("report for cycle %d before BeginRun", r.State.Cycle)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin report transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	st := r.State
	final := boolInt(r.Final)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cycles (run_id, cycle, final, time_h, temperature, curing, alpha, alpha_mass,
			heat, shrinkage, water_left, ph, conductivity, sulfate, dissolved, reacted, diffusing, paste_set)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, st.Cycle, final, st.Time, st.Temperature, st.Curing.String(), st.Alpha, st.AlphaMass,
		st.Heat, r.Dissolution.Shrinkage, r.Dissolution.WaterLeft, st.PH, r.Solution.Conductivity, st.Sulfate,
		r.Dissolution.Total(), r.Reaction.TotalReacted(), r.Reaction.Left, boolInt(st.Set))
	if err != nil {
		return fmt.Errorf("insert cycle %d: %w", st.Cycle, err)
	}

	countStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO phase_counts (run_id, cycle, final, phase, voxels) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare phase counts: %w", err)
	}
	defer countStmt.Close()
	for _, p := range phase.All {
		n := r.Counts[p]
		if n == 0 {
			continue
		}
		if _, err := countStmt.ExecContext(ctx, s.runID, st.Cycle, final, p.String(), n); err != nil {
			return fmt.Errorf("insert %s count: %w", p, err)
		}
	}

	for _, pr := range r.Pores {
		if err := s.insertBurn(ctx, tx, st.Cycle, final, "pore", pr); err != nil {
			return err
		}
	}
	for _, sr := range r.Set {
		res := sr.Result
		res.Percolates = sr.Set
		if err := s.insertBurn(ctx, tx, st.Cycle, final, "set", res); err != nil {
			return err
		}
	}

	for _, rec := range r.Particles {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO particles (run_id, cycle, particle_id, original, remaining, fraction) VALUES (?, ?, ?, ?, ?, ?)`,
			s.runID, st.Cycle, rec.ID, rec.Original, rec.Left, rec.Fraction)
		if err != nil {
			return fmt.Errorf("insert particle %d: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) insertBurn(ctx context.Context, tx *sql.Tx, cycle, final int, kind string, r percolation.Result) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO percolation (run_id, cycle, final, kind, axis, connected, through, total, percolates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, cycle, final, kind, r.Axis.String(), r.Connected, r.Through, r.Total, boolInt(r.Percolates))
	if err != nil {
		return fmt.Errorf("insert %s burn along %s: %w", kind, r.Axis, err)
	}
	return nil
}

// CycleRow is one row of the cycles table.
type CycleRow struct {
	Cycle       int
	Final       bool
	Time        float64
	Temperature float64
	Curing      string
	AlphaMass   float64
	PH          float64
	Set         bool
}

// Cycles returns the cycle rows of run in order.
func (s *Store) Cycles(ctx context.Context, run int64) ([]CycleRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle, final, time_h, temperature, curing, alpha_mass, ph, paste_set
		FROM cycles WHERE run_id = ? ORDER BY final, cycle`, run)
	if err != nil {
		return nil, fmt.Errorf("select cycles: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []CycleRow
	for rows.Next() {
		var c CycleRow
		if err := rows.Scan(&c.Cycle, &c.Final, &c.Time, &c.Temperature, &c.Curing, &c.AlphaMass, &c.PH, &c.Set); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PhaseHistory returns the voxel count of p per cycle of run, excluding the
// final measurement.
func (s *Store) PhaseHistory(ctx context.Context, run int64, p phase.Phase) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cycle, voxels FROM phase_counts WHERE run_id = ? AND phase = ? AND final = 0`, run, p.String())
	if err != nil {
		return nil, fmt.Errorf("select %s history: %w", p, err)
	}
	defer func() { _ = rows.Close() }()
	out := map[int]int{}
	for rows.Next() {
		var cycle, n int
		if err := rows.Scan(&cycle, &n); err != nil {
			return nil, fmt.Errorf("scan %s history: %w", p, err)
		}
		out[cycle] = n
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
