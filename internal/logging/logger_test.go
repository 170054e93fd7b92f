package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"daemonkit/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("daemon started", logging.PID(4242), logging.String(logging.FieldComponent, "controller"))

	content := readLog(t, logPath)
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no source location in info logs, got %q", content)
	}
	if !strings.Contains(content, "INFO controller: daemon started") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, "pid=4242") {
		t.Fatalf("expected pid attribute, got %q", content)
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("detail")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected source location in debug logs, got %q", content)
	}
}

func TestConsoleLoggerQuotesValuesWithSpaces(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "quoted.log")
	logger, err := logging.New(logging.Options{OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("stop", logging.String("detail", "no such process"))

	if content := readLog(t, logPath); !strings.Contains(content, `detail="no such process"`) {
		t.Fatalf("expected quoted value, got %q", content)
	}
}

func TestJSONLoggerAddsInstanceID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "daemon.json")
	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
		InstanceID:  "run-1",
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.With(logging.String("k", "v")).Info("heartbeat")

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &record); err != nil {
		t.Fatalf("decode json record: %v", err)
	}
	if record[logging.FieldInstanceID] != "run-1" {
		t.Fatalf("instance id = %v, want run-1", record[logging.FieldInstanceID])
	}
	if record["level"] != "info" {
		t.Fatalf("level = %v, want info", record["level"])
	}
	if record["k"] != "v" {
		t.Fatalf("k = %v, want v", record["k"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := logging.ParseLevel("verbose"); got.String() != "INFO" {
		t.Fatalf("ParseLevel(verbose) = %v, want INFO", got)
	}
	if got := logging.ParseLevel(" WARN "); got.String() != "WARN" {
		t.Fatalf("ParseLevel(WARN) = %v, want WARN", got)
	}
}

func TestCleanupOldLogsHonoursExclusions(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "daemonkit-old.log")
	current := filepath.Join(dir, "daemonkit-current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		stale := time.Now().AddDate(0, 0, -10)
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 7, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "daemonkit-*.log",
		Exclude: []string{current},
	})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err=%v", old, err)
	}
	for _, path := range []string{current, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}

func TestPointCurrentLogReplacesExistingPointer(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "daemonkit-1.log")
	second := filepath.Join(dir, "daemonkit-2.log")
	for _, path := range []string{first, second} {
		if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if err := logging.PointCurrentLog(dir, "daemonkit.log", first); err != nil {
		t.Fatalf("PointCurrentLog first: %v", err)
	}
	if err := logging.PointCurrentLog(dir, "daemonkit.log", second); err != nil {
		t.Fatalf("PointCurrentLog second: %v", err)
	}

	content := readLog(t, filepath.Join(dir, "daemonkit.log"))
	if content != "daemonkit-2.log" {
		t.Fatalf("pointer content = %q, want daemonkit-2.log", content)
	}
}

func TestErrorWithContextAddsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.ErrorWithContext(logger, "spawn failed", "spawn_failed", logging.Int("stage", 1))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["level"] != "ERROR" || record["event_type"] != "spawn_failed" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["error_hint"] != "check logs for details" {
		t.Fatalf("error_hint = %v", record["error_hint"])
	}

	logging.ErrorWithContext(nil, "ignored", "ignored")
}
