// Package logging provides leveled logging and event tracing for smesim.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EventLogger for structured JSONL stage traces (<output>/events.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/smesim/internal/constants"
)

// LevelTrace is a custom slog level below Debug. At this level every stage
// of every year is logged to stderr as well as to the event log.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// StageEvent is one line of events.jsonl: what one dimension stage changed
// in one simulated year. Counters holds only the event counts the stage
// moved, keyed by the tally's JSON names.
type StageEvent struct {
	Time     time.Time      `json:"time"`
	Scenario string         `json:"scenario"`
	Year     int            `json:"year"`
	Stage    string         `json:"stage"`
	Agents   int            `json:"agents"`
	Counters map[string]int `json:"counters,omitempty"`
}

// EventLogger appends StageEvents to a JSONL file. It is safe for concurrent
// use by scenario workers, and a nil *EventLogger discards every event.
type EventLogger struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewEventLogger opens dir/events.jsonl for append when level is debug or
// trace. At info level, or when the file cannot be opened, it returns nil.
func NewEventLogger(dir string, level string) *EventLogger {
	if ParseLevel(level) >= slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, constants.EventsLogName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &EventLogger{file: f, enc: json.NewEncoder(f)}
}

// LogStage writes ev as one line. A zero Time is set to now (UTC).
func (el *EventLogger) LogStage(ev StageEvent) {
	if el == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	el.mu.Lock()
	defer el.mu.Unlock()
	if el.file == nil {
		return
	}
	_ = el.enc.Encode(ev)
}

// Close closes the file. Later LogStage calls are dropped.
func (el *EventLogger) Close() {
	if el == nil {
		return
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.file != nil {
		el.file.Close()
		el.file = nil
	}
}
