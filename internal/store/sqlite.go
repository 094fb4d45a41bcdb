package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nvandessel/smesim/internal/constants"
	"github.com/nvandessel/smesim/internal/models"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNoRuns is returned by LatestRun when the database holds no runs.
var ErrNoRuns = errors.New("no runs recorded")

// createdAtLayout is fixed-width so that created_at sorts lexically.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// RunInfo describes one recorded runner invocation.
type RunInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// SQLiteSink stores yearly records in <dir>/results.db. Every sink writes
// under one run id; a sink opened with an empty run id is read-only.
type SQLiteSink struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
	runID  string
	closed bool
}

// NewSQLiteSink opens (or creates) the results database in dir and registers
// runID as a new run.
func NewSQLiteSink(dir, runID string) (*SQLiteSink, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	dbPath := filepath.Join(dir, constants.ResultsDBName)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	ctx := context.Background()
	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if runID != "" {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO runs (id, created_at) VALUES (?, ?)`,
			runID, time.Now().UTC().Format(createdAtLayout)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to register run: %w", err)
		}
	}

	return &SQLiteSink{db: db, dbPath: dbPath, runID: runID}, nil
}

// OpenSQLiteResults opens an existing results database for reading.
func OpenSQLiteResults(dir string) (*SQLiteSink, error) {
	if _, err := os.Stat(filepath.Join(dir, constants.ResultsDBName)); err != nil {
		return nil, fmt.Errorf("no results database in %s: %w", dir, err)
	}
	return NewSQLiteSink(dir, "")
}

// Path returns the database file path.
func (s *SQLiteSink) Path() string {
	return s.dbPath
}

// RunID returns the run this sink writes under.
func (s *SQLiteSink) RunID() string {
	return s.runID
}

// WriteResults replaces this run's rows for scenario with records, in one
// transaction.
func (s *SQLiteSink) WriteResults(ctx context.Context, scenario string, records []models.AggregateRecord) error {
	if err := checkScenario(scenario); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.runID == "" {
		return fmt.Errorf("sqlite sink opened without a run id is read-only")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM yearly_records WHERE run_id = ? AND scenario = ?`, s.runID, scenario); err != nil {
		return fmt.Errorf("failed to clear previous records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO yearly_records (
			run_id, scenario, year, total_smes, mean_revenue, formal_share,
			financing_access_rate, tech_adoption_rate, exporter_rate, record_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode record for year %d: %w", r.Year, err)
		}
		if _, err := stmt.ExecContext(ctx,
			s.runID, scenario, r.Year, r.TotalSMEs, r.MeanRevenue, r.FormalShare,
			r.FinancingAccessRate, r.TechAdoptionRate, r.ExporterRate, string(raw)); err != nil {
			return fmt.Errorf("failed to insert record for year %d: %w", r.Year, err)
		}
	}

	return tx.Commit()
}

// Runs lists recorded runs, newest first.
func (s *SQLiteSink) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var id, created string
		if err := rows.Scan(&id, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		ts, err := time.Parse(createdAtLayout, created)
		if err != nil {
			return nil, fmt.Errorf("run %s has invalid created_at %q: %w", id, created, err)
		}
		runs = append(runs, RunInfo{ID: id, CreatedAt: ts})
	}
	return runs, rows.Err()
}

// LatestRun returns the most recently created run.
func (s *SQLiteSink) LatestRun(ctx context.Context) (RunInfo, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return RunInfo{}, err
	}
	if len(runs) == 0 {
		return RunInfo{}, ErrNoRuns
	}
	return runs[0], nil
}

// Scenarios returns the scenarios recorded for runID, in write order.
func (s *SQLiteSink) Scenarios(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scenario FROM yearly_records
		WHERE run_id = ?
		GROUP BY scenario
		ORDER BY MIN(rowid)`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Records returns the records of one scenario in one run, in year order.
func (s *SQLiteSink) Records(ctx context.Context, runID, scenario string) ([]models.AggregateRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_json FROM yearly_records
		WHERE run_id = ? AND scenario = ?
		ORDER BY year`, runID, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.AggregateRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var rec models.AggregateRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
