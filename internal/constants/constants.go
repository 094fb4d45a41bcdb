// Package constants provides named constants used throughout the smesim codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Score bounds
const (
	// MinSkillLevel is the lowest value on the ordinal skill scale.
	MinSkillLevel = 1.0

	// MaxSkillLevel is the highest value on the ordinal skill scale.
	MaxSkillLevel = 10.0

	// BaseProductivity is the productivity multiplier every agent starts with.
	BaseProductivity = 1.0
)

// DistributionTolerance is the allowed deviation from 1.0 when summing
// categorical distribution weights.
const DistributionTolerance = 1e-6

// File and directory names
const (
	// DefaultConfigFile is the config file looked up when --config is not given.
	DefaultConfigFile = "config.yaml"

	// DefaultOutputDir is where result sinks write unless configured otherwise.
	DefaultOutputDir = "output"

	// ResultsDBName is the SQLite database file name inside the output dir.
	ResultsDBName = "results.db"

	// EventsLogName is the JSONL event log file name inside the output dir.
	EventsLogName = "events.jsonl"

	// SnapshotDirName is the snapshot directory inside the output dir.
	SnapshotDirName = "snapshots"
)

// Snapshot rotation controls how many snapshot files are retained per scenario.
const (
	// MaxSnapshotRotation is the default maximum number of snapshots to keep.
	MaxSnapshotRotation = 5
)
