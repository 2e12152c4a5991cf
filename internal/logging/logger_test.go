package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewJSON_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "warn")

	log.Info("hidden")
	log.Warn("chunk parse failed", "payload", "{bad", "error", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at warn level, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if entry["message"] != "chunk parse failed" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["payload"] != "{bad" {
		t.Errorf("payload = %v", entry["payload"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry["error"])
	}
}

func TestWith_AddsField(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "debug").With("session", "s-1")
	log.Debug("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if entry["session"] != "s-1" {
		t.Errorf("session = %v, want s-1", entry["session"])
	}
}

func TestToFields_OddArgs(t *testing.T) {
	fields := toFields("a", 1, "dangling")
	if len(fields) != 1 || fields["a"] != 1 {
		t.Errorf("fields = %v", fields)
	}
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "chatty")
	log.Debug("nope")
	log.Info("yes")
	if strings.Contains(buf.String(), "nope") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(buf.String(), "yes") {
		t.Error("info message missing")
	}
}
