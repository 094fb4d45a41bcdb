package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase INFO", "INFO", slog.LevelInfo},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"info level", "info"},
		{"debug level", "debug"},
		{"trace level", "trace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)
			if logger == nil {
				t.Fatal("NewLogger returned nil")
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtInfo  bool
	}{
		{"info filters debug", "info", false, true},
		{"debug passes debug", "debug", true, true},
		{"trace passes debug", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			hasDebug := strings.Contains(buf.String(), "debug message")
			if hasDebug != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v (buf: %q)", hasDebug, tt.logAtDebug, buf.String())
			}

			buf.Reset()
			logger.Info("info message")
			hasInfo := strings.Contains(buf.String(), "info message")
			if hasInfo != tt.logAtInfo {
				t.Errorf("info message visible = %v, want %v (buf: %q)", hasInfo, tt.logAtInfo, buf.String())
			}
		})
	}
}

func TestLevelTrace(t *testing.T) {
	// Trace should be below debug (more verbose)
	if LevelTrace >= slog.LevelDebug {
		t.Errorf("LevelTrace (%d) should be less than LevelDebug (%d)", LevelTrace, slog.LevelDebug)
	}
}

func readStageEvents(t *testing.T, dir string) []StageEvent {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("failed to read events.jsonl: %v", err)
	}
	var events []StageEvent
	for i, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var ev StageEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("line %d is not a stage event: %v", i, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestNewEventLogger_Levels(t *testing.T) {
	tests := []struct {
		level   string
		enabled bool
	}{
		{"info", false},
		{"", false},
		{"debug", true},
		{"trace", true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			dir := t.TempDir()
			el := NewEventLogger(dir, tt.level)
			defer el.Close()
			if (el != nil) != tt.enabled {
				t.Fatalf("NewEventLogger(%q) enabled = %v, want %v", tt.level, el != nil, tt.enabled)
			}

			el.LogStage(StageEvent{Scenario: "baseline", Year: 2025, Stage: "financing"})
			_, err := os.Stat(filepath.Join(dir, "events.jsonl"))
			if exists := err == nil; exists != tt.enabled {
				t.Errorf("events.jsonl exists = %v, want %v", exists, tt.enabled)
			}
		})
	}
}

func TestEventLogger_LogStage(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "debug")
	defer el.Close()

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	el.LogStage(StageEvent{
		Time:     at,
		Scenario: "pro_investment",
		Year:     2027,
		Stage:    "financing",
		Agents:   40,
		Counters: map[string]int{"loans_sought": 9, "loans_approved": 4},
	})
	el.LogStage(StageEvent{Scenario: "pro_investment", Year: 2027, Stage: "technology", Agents: 40})

	events := readStageEvents(t, dir)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	first := events[0]
	if !first.Time.Equal(at) || first.Scenario != "pro_investment" || first.Year != 2027 ||
		first.Stage != "financing" || first.Agents != 40 {
		t.Errorf("first event = %+v", first)
	}
	if first.Counters["loans_approved"] != 4 || first.Counters["loans_sought"] != 9 {
		t.Errorf("first counters = %v", first.Counters)
	}

	second := events[1]
	if second.Time.IsZero() {
		t.Error("LogStage did not stamp a zero Time")
	}
	if second.Counters != nil {
		t.Errorf("second counters = %v, want none", second.Counters)
	}
}

func TestEventLogger_NilAndClosed(t *testing.T) {
	var nilLogger *EventLogger
	nilLogger.LogStage(StageEvent{Stage: "ignored"})
	nilLogger.Close()

	dir := t.TempDir()
	el := NewEventLogger(dir, "debug")
	el.LogStage(StageEvent{Stage: "before_close"})
	el.Close()
	el.Close()
	el.LogStage(StageEvent{Stage: "after_close"})

	events := readStageEvents(t, dir)
	if len(events) != 1 || events[0].Stage != "before_close" {
		t.Errorf("events = %+v, want only before_close", events)
	}
}

func TestNewEventLogger_CreatesDir(t *testing.T) {
	nestedDir := filepath.Join(t.TempDir(), "sub", "dir")

	el := NewEventLogger(nestedDir, "debug")
	if el == nil {
		t.Fatal("expected non-nil EventLogger when dir needs creation")
	}
	defer el.Close()
	el.LogStage(StageEvent{Stage: "segmentation"})

	info, err := os.Stat(filepath.Join(nestedDir, "events.jsonl"))
	if err != nil {
		t.Fatalf("events.jsonl should exist after dir creation: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger == nil {
		t.Fatal("Discard returned nil")
	}
	logger.Info("dropped")
}

func TestEventLogger_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "debug")
	defer el.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				el.LogStage(StageEvent{Scenario: fmt.Sprintf("s%d", worker), Year: 2025 + j, Stage: "inclusion"})
			}
		}(i)
	}
	wg.Wait()

	if events := readStageEvents(t, dir); len(events) != 200 {
		t.Fatalf("got %d events, want 200", len(events))
	}
}
