package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nvandessel/smesim/internal/models"
)

// JSONLSink writes each scenario's records to <dir>/<scenario>_results.jsonl,
// one record per line. A later write for the same scenario replaces the file.
type JSONLSink struct {
	mu     sync.Mutex
	dir    string
	closed bool
}

// NewJSONLSink creates a JSONL sink rooted at dir, creating it if needed.
func NewJSONLSink(dir string) (*JSONLSink, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &JSONLSink{dir: dir}, nil
}

// Path returns the file scenario's records are written to.
func (s *JSONLSink) Path(scenario string) string {
	return ResultsPath(s.dir, scenario, "jsonl")
}

// WriteResults writes records atomically: to a temp file first, then renamed
// into place.
func (s *JSONLSink) WriteResults(ctx context.Context, scenario string, records []models.AggregateRecord) error {
	if err := checkScenario(scenario); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	path := s.Path(scenario)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".results-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to encode record for year %d: %w", records[i].Year, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move results into place: %w", err)
	}
	return nil
}

// Close marks the sink closed.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ReadJSONL reads records written by JSONLSink. Blank lines are skipped; a
// malformed line fails the whole read with its line number.
func ReadJSONL(path string) ([]models.AggregateRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var records []models.AggregateRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec models.AggregateRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNum, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return records, nil
}
