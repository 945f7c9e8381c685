package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readEntries(t *testing.T, path string) []LogEntry {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var entries []LogEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var e LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad log line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestFileLogger_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	logger, err := NewFileLogger(FileLoggerConfig{FilePath: path, Level: INFO})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	logger.Debug("filtered")
	logger.Info("downloaded", F("path", "/a.txt"), F("bytes", 12))
	logger.Error("download failed", F("error", os.ErrPermission))
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	entries := readEntries(t, path)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Level != "INFO" || entries[0].Fields["path"] != "/a.txt" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Fields["error"] != os.ErrPermission.Error() {
		t.Errorf("error field = %v", entries[1].Fields["error"])
	}
}

func TestFileLogger_TraceIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	logger, err := NewFileLogger(FileLoggerConfig{FilePath: path, Level: INFO})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	logger.WithTraceID("explicit").Info("one")
	logger.WithContext(ContextWithTraceID(context.Background(), "from-ctx")).Info("two")
	logger.WithContext(context.Background()).Info("three")
	logger.Close()

	entries := readEntries(t, path)
	want := []string{"explicit", "from-ctx", ""}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].TraceID != w {
			t.Errorf("entry %d trace = %q, want %q", i, entries[i].TraceID, w)
		}
	}
}

func TestFileLogger_SetLevelAppliesToTracedCopies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.log")
	logger, err := NewFileLogger(FileLoggerConfig{FilePath: path, Level: DEBUG})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	traced := logger.WithTraceID("t")

	traced.Debug("kept")
	logger.SetLevel(ERROR)
	traced.Info("dropped")
	traced.Error("kept too")
	logger.Close()

	if n := len(readEntries(t, path)); n != 2 {
		t.Errorf("got %d entries, want 2", n)
	}
}

func TestFileLogger_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotate.log")
	logger, err := NewFileLogger(FileLoggerConfig{
		FilePath:      path,
		Level:         INFO,
		MaxFileSize:   64,
		RotateEnabled: true,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	logger.Info("first message that is long enough to pass the size limit on its own")
	logger.Info("second message lands in a fresh file")
	logger.Close()

	files, err := filepath.Glob(filepath.Join(dir, "rotate.log*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d log files, want 2: %v", len(files), files)
	}
	if n := len(readEntries(t, path)); n != 1 {
		t.Errorf("current file has %d entries, want 1", n)
	}
}

func TestFileLogger_RedactsTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redact.log")
	logger, err := NewFileLogger(FileLoggerConfig{FilePath: path, Level: INFO})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	logger.Info("request", F("header", "Bearer secret-token-value"))
	logger.Close()

	data, _ := os.ReadFile(path)
	if bytes.Contains(data, []byte("secret-token-value")) {
		t.Errorf("token written to log: %s", data)
	}
}
