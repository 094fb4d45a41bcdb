package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nvandessel/smesim/internal/constants"
)

func newTestSQLiteSink(t *testing.T, dir, runID string) *SQLiteSink {
	t.Helper()
	s, err := NewSQLiteSink(dir, runID)
	if err != nil {
		t.Fatalf("NewSQLiteSink() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSink_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := newTestSQLiteSink(t, dir, "run-1")
	ctx := context.Background()

	base := sampleRecords("baseline", 11)
	pro := sampleRecords("pro_investment", 11)
	if err := s.WriteResults(ctx, "baseline", base); err != nil {
		t.Fatalf("WriteResults(baseline) error = %v", err)
	}
	if err := s.WriteResults(ctx, "pro_investment", pro); err != nil {
		t.Fatalf("WriteResults(pro_investment) error = %v", err)
	}

	got, err := s.Records(ctx, "run-1", "baseline")
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if !reflect.DeepEqual(got, base) {
		t.Errorf("Records() mismatch:\n got %+v\nwant %+v", got, base)
	}

	names, err := s.Scenarios(ctx, "run-1")
	if err != nil {
		t.Fatalf("Scenarios() error = %v", err)
	}
	if want := []string{"baseline", "pro_investment"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Scenarios() = %v, want %v", names, want)
	}

	if s.Path() != filepath.Join(dir, constants.ResultsDBName) {
		t.Errorf("Path() = %q", s.Path())
	}
}

func TestSQLiteSink_RewriteReplaces(t *testing.T) {
	s := newTestSQLiteSink(t, t.TempDir(), "run-1")
	ctx := context.Background()

	if err := s.WriteResults(ctx, "baseline", sampleRecords("baseline", 5)); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}
	if err := s.WriteResults(ctx, "baseline", sampleRecords("baseline", 3)); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}

	got, err := s.Records(ctx, "run-1", "baseline")
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len(Records()) = %d, want 3", len(got))
	}
}

func TestSQLiteSink_LatestRun(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := newTestSQLiteSink(t, dir, "run-a")
	if err := first.WriteResults(ctx, "baseline", sampleRecords("baseline", 2)); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}
	first.Close()

	second := newTestSQLiteSink(t, dir, "run-b")
	if err := second.WriteResults(ctx, "baseline", sampleRecords("baseline", 4)); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}
	second.Close()

	reader, err := OpenSQLiteResults(dir)
	if err != nil {
		t.Fatalf("OpenSQLiteResults() error = %v", err)
	}
	defer reader.Close()

	latest, err := reader.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun() error = %v", err)
	}
	if latest.ID != "run-b" {
		t.Errorf("LatestRun().ID = %q, want run-b", latest.ID)
	}

	runs, err := reader.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("len(Runs()) = %d, want 2", len(runs))
	}

	old, err := reader.Records(ctx, "run-a", "baseline")
	if err != nil {
		t.Fatalf("Records(run-a) error = %v", err)
	}
	if len(old) != 2 {
		t.Errorf("len(Records(run-a)) = %d, want 2", len(old))
	}
}

func TestSQLiteSink_ReadOnly(t *testing.T) {
	dir := t.TempDir()
	s := newTestSQLiteSink(t, dir, "")

	if err := s.WriteResults(context.Background(), "baseline", sampleRecords("baseline", 1)); err == nil {
		t.Error("WriteResults() on read-only sink error = nil, want error")
	}

	if _, err := s.LatestRun(context.Background()); !errors.Is(err, ErrNoRuns) {
		t.Errorf("LatestRun() error = %v, want ErrNoRuns", err)
	}
}

func TestOpenSQLiteResults_Missing(t *testing.T) {
	if _, err := OpenSQLiteResults(t.TempDir()); err == nil {
		t.Error("OpenSQLiteResults() error = nil, want error")
	}
}

func TestSQLiteSink_Closed(t *testing.T) {
	s := newTestSQLiteSink(t, t.TempDir(), "run-1")
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	err := s.WriteResults(context.Background(), "baseline", nil)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("WriteResults() error = %v, want ErrClosed", err)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "t.db"))
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := InitSchema(ctx, db); err != nil {
			t.Fatalf("InitSchema() pass %d error = %v", i, err)
		}
	}

	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("getSchemaVersion() error = %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d, want %d", version, SchemaVersion)
	}

	if err := ValidateIntegrity(ctx, db); err != nil {
		t.Errorf("ValidateIntegrity() error = %v", err)
	}

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		t.Fatalf("disable foreign keys: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO yearly_records (run_id, scenario, year, total_smes, mean_revenue, formal_share,
			financing_access_rate, tech_adoption_rate, exporter_rate, record_json)
		 VALUES ('ghost', 'baseline', 2025, 0, 0, 0, 0, 0, 0, '{}')`); err != nil {
		t.Fatalf("insert orphan: %v", err)
	}
	if err := ValidateIntegrity(ctx, db); err == nil {
		t.Error("ValidateIntegrity() error = nil with an orphaned record")
	}
}

func TestInitSchema_NewerVersion(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "t.db"))
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, SchemaVersion+1); err != nil {
		t.Fatalf("insert version error = %v", err)
	}
	if err := InitSchema(ctx, db); err == nil {
		t.Error("InitSchema() error = nil for newer schema, want error")
	}
}
