package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestComponentTagging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(zapcore.AddSync(&buf), zapcore.DebugLevel, false)

	logger.ComponentInfo(ComponentRelay, "subscription created")
	logger.ComponentDebug(ComponentFilter, "hint recorded")
	_ = logger.Sync()

	out := buf.String()
	if !strings.Contains(out, "[RELAY] subscription created") {
		t.Errorf("missing relay tag in %q", out)
	}
	if !strings.Contains(out, "[FILTER] hint recorded") {
		t.Errorf("missing filter tag in %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(zapcore.AddSync(&buf), zapcore.WarnLevel, false)

	logger.ComponentInfo(ComponentGateway, "dropped")
	logger.ComponentWarn(ComponentGateway, "kept")
	_ = logger.Sync()

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestNewJSONFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputFile: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.ComponentInfo(ComponentRelay, "joined")
	logger.ComponentDebug(ComponentRelay, "hidden")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), data)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["msg"] != "[RELAY] joined" {
		t.Errorf("msg = %v", entry["msg"])
	}
}
