package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer

	log := NewLoggerWithWriter("info", FormatJSON, &buf).With("run_id", "abc")
	log.Info("downloaded file", "dataset", "acme-stations", "bytes", 12)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}

	if entry["message"] != "downloaded file" {
		t.Errorf("Unexpected message: %v", entry["message"])
	}

	if entry["run_id"] != "abc" {
		t.Errorf("Expected run_id from With, got %v", entry["run_id"])
	}

	if entry["dataset"] != "acme-stations" {
		t.Errorf("Expected dataset field, got %v", entry["dataset"])
	}

	if entry["level"] != "info" {
		t.Errorf("Expected level info, got %v", entry["level"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	log := NewLoggerWithWriter("warn", FormatJSON, &buf)
	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Messages below warn must be dropped, got %q", out)
	}

	if !strings.Contains(out, "shown") {
		t.Errorf("Expected warn message, got %q", out)
	}
}

func TestNewLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	log := NewLoggerWithWriter("verbose", FormatConsole, &bytes.Buffer{})
	if log.Level() != "info" {
		t.Errorf("Expected info level, got %s", log.Level())
	}
}

func TestNop(t *testing.T) {
	// Must not panic.
	Nop().With("k", "v").Error("ignored")
}
