package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nvandessel/smesim/internal/models"
)

// MultiSink implements ResultSink by fanning every write out to several
// sinks. A failing sink does not stop the others; all failures are joined.
type MultiSink struct {
	sinks []ResultSink
	names []string
}

// NewMultiSink wraps sinks. names labels each sink in error messages and may
// be nil.
func NewMultiSink(sinks []ResultSink, names []string) *MultiSink {
	if len(names) != len(sinks) {
		names = make([]string, len(sinks))
		for i := range names {
			names[i] = fmt.Sprintf("sink[%d]", i)
		}
	}
	return &MultiSink{sinks: sinks, names: names}
}

// Sinks returns the wrapped sinks.
func (m *MultiSink) Sinks() []ResultSink {
	out := make([]ResultSink, len(m.sinks))
	copy(out, m.sinks)
	return out
}

// WriteResults writes records to every wrapped sink.
func (m *MultiSink) WriteResults(ctx context.Context, scenario string, records []models.AggregateRecord) error {
	var errs []error
	for i, s := range m.sinks {
		if err := s.WriteResults(ctx, scenario, records); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.names[i], err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every wrapped sink.
func (m *MultiSink) Close() error {
	var errs []error
	for i, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.names[i], err))
		}
	}
	return errors.Join(errs...)
}
