package store

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResultsPath returns the per-scenario results file for the given extension,
// e.g. output/baseline_results.jsonl.
func ResultsPath(dir, scenario, ext string) string {
	return filepath.Join(dir, SafeName(scenario)+"_results."+ext)
}

// SafeName maps a scenario name to a string usable as a file name component.
// Characters other than letters, digits, '-', '_' and '.' become '_'.
func SafeName(name string) string {
	if name == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.' && b.Len() > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// checkScenario rejects names no sink can store.
func checkScenario(scenario string) error {
	if strings.TrimSpace(scenario) == "" {
		return fmt.Errorf("scenario name is required")
	}
	return nil
}
