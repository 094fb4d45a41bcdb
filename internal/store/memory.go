package store

import (
	"context"
	"sync"

	"github.com/nvandessel/smesim/internal/models"
)

// MemorySink implements ResultSink for testing and for callers that consume
// results in-process.
type MemorySink struct {
	mu      sync.RWMutex
	results map[string][]models.AggregateRecord
	order   []string
	writes  int
}

// NewMemorySink creates a new in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		results: make(map[string][]models.AggregateRecord),
	}
}

// WriteResults stores a copy of records under scenario, replacing any
// previous write for the same scenario.
func (s *MemorySink) WriteResults(ctx context.Context, scenario string, records []models.AggregateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[scenario]; !ok {
		s.order = append(s.order, scenario)
	}
	s.results[scenario] = cloneRecords(records)
	s.writes++
	return nil
}

// Results returns a copy of the records stored for scenario.
func (s *MemorySink) Results(scenario string) ([]models.AggregateRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, ok := s.results[scenario]
	if !ok {
		return nil, false
	}
	return cloneRecords(recs), true
}

// Scenarios returns the scenarios written so far, in first-write order.
func (s *MemorySink) Scenarios() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Writes returns how many times WriteResults has been called.
func (s *MemorySink) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Close is a no-op.
func (s *MemorySink) Close() error {
	return nil
}
