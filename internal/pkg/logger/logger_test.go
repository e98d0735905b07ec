package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.WithFields(map[string]interface{}{
		"stage":    "start-databases",
		"resource": "main-db",
	}).Info("Starting database")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "Starting database" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["stage"] != "start-databases" || entry["resource"] != "main-db" {
		t.Errorf("fields missing: %v", entry)
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "json", Output: &buf})

	log.Info("hidden")
	log.Debugf("hidden %d", 1)
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-level message written: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestLogger_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "console", Output: &buf})

	log.With("run_id", "abc").Info("Sequence started")

	out := buf.String()
	if !strings.Contains(out, "Sequence started") || !strings.Contains(out, "run_id=abc") {
		t.Errorf("unexpected console output: %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("console format produced JSON: %q", out)
	}
}

func TestLogger_StageAndResourceFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "", Format: "json", Output: &buf})

	log.WithStage("await-compute-running").WithResource("i-0bastion").Info("Waiting")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["stage"] != "await-compute-running" || entry["resource"] != "i-0bastion" {
		t.Errorf("fields missing: %v", entry)
	}
}
