package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Factory opens a sink writing under dir. runID identifies the runner
// invocation; file sinks ignore it.
type Factory func(dir, runID string) (ResultSink, error)

// UnknownFormatError is returned for an output format with no registered
// factory.
type UnknownFormatError struct {
	Format string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown output format %q (known: %s)", e.Format, strings.Join(Formats(), ", "))
}

var factories = map[string]Factory{
	"jsonl": func(dir, _ string) (ResultSink, error) { return NewJSONLSink(dir) },
	"arrow": func(dir, _ string) (ResultSink, error) { return NewArrowSink(dir) },
	"sqlite": func(dir, runID string) (ResultSink, error) {
		return NewSQLiteSink(dir, runID)
	},
}

// Formats returns the registered format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateFormats checks that every name has a factory.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if _, ok := factories[f]; !ok {
			return &UnknownFormatError{Format: f}
		}
	}
	return nil
}

// Open builds one sink per format and wraps them in a MultiSink. Duplicate
// formats are opened once. If any sink fails to open, those already opened
// are closed.
func Open(formats []string, dir, runID string) (*MultiSink, error) {
	if err := ValidateFormats(formats); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(formats))
	var sinks []ResultSink
	var names []string
	for _, f := range formats {
		if seen[f] {
			continue
		}
		seen[f] = true

		s, err := factories[f](dir, runID)
		if err != nil {
			var closeErrs []error
			for _, opened := range sinks {
				closeErrs = append(closeErrs, opened.Close())
			}
			return nil, errors.Join(append([]error{fmt.Errorf("failed to open %s sink: %w", f, err)}, closeErrs...)...)
		}
		sinks = append(sinks, s)
		names = append(names, f)
	}
	return NewMultiSink(sinks, names), nil
}
