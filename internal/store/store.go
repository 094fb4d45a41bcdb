// Package store provides result sink implementations for yearly scenario
// aggregates: in-memory, JSONL files, Apache Arrow IPC files and SQLite.
package store

import (
	"context"
	"errors"

	"github.com/nvandessel/smesim/internal/models"
)

// ResultSink receives the completed trajectory of one scenario.
// Implementations must be safe for concurrent use.
type ResultSink interface {
	// WriteResults stores the records of one scenario, in year order.
	// It is called once per completed scenario.
	WriteResults(ctx context.Context, scenario string, records []models.AggregateRecord) error

	// Close releases resources held by the sink.
	Close() error
}

// ErrClosed is returned when writing to a sink that has been closed.
var ErrClosed = errors.New("sink is closed")

// cloneRecords copies records so that sinks never alias caller memory.
func cloneRecords(records []models.AggregateRecord) []models.AggregateRecord {
	out := make([]models.AggregateRecord, len(records))
	copy(out, records)
	return out
}
