package hivelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesTimestampedLines(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "debug.log")

	logger, err := New(logPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer logger.Close()

	logger.Log("task %s dispatched to %d agents", "task-1", 3)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "task task-1 dispatched to 3 agents") {
		t.Errorf("log file missing formatted message, got:\n%s", content)
	}
	if !strings.Contains(content, "Hiveflow Debug Log Started") {
		t.Errorf("log file missing header, got:\n%s", content)
	}
}

func TestNew_EmptyPathIsNoop(t *testing.T) {
	logger, err := New("")
	if err != nil {
		t.Fatalf("New(\"\") error = %v", err)
	}

	// Must not panic or create files.
	logger.Log("discarded message")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on no-op logger error = %v", err)
	}
}

func TestNop_SafeOnNil(t *testing.T) {
	logger := Nop()
	logger.Log("discarded")

	var nilLogger *DebugLogger
	nilLogger.Log("also discarded") // must not panic
	if err := nilLogger.Close(); err != nil {
		t.Errorf("Close() on nil logger error = %v", err)
	}
}

func TestNewForDir_CreatesLogDirectory(t *testing.T) {
	dir := t.TempDir()

	logger := NewForDir(dir)
	defer logger.Close()
	logger.Log("hello")

	logPath := filepath.Join(dir, ".hiveflow", "logs", "hive-debug.log")
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("expected log file at %s: %v", logPath, err)
	}
}
