package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		wantJSON bool
	}{
		{"default json", "", true},
		{"json", "json", true},
		{"text", "text", false},
		{"console", "console", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(Config{Level: "info", Format: tt.format, Output: &buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			l.Info("hello", "component", "test")

			isJSON := json.Valid(bytes.TrimSpace(buf.Bytes()))
			if isJSON != tt.wantJSON {
				t.Errorf("json output = %v, want %v (%q)", isJSON, tt.wantJSON, buf.String())
			}
		})
	}
	SetLevel("info")
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "warn", Format: "json", Output: &buf})
	defer SetLevel("info")

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}

	l.Warn("kept")
	if entry := decodeLine(t, &buf); entry["msg"] != "kept" || entry["level"] != "WARN" {
		t.Errorf("entry = %v", entry)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})
	defer SetLevel("info")

	l.Debug("before")
	if buf.Len() != 0 {
		t.Fatal("debug logged at info level")
	}

	SetLevel("debug")
	if GetLevel() != "debug" {
		t.Errorf("GetLevel() = %q", GetLevel())
	}
	l.Debug("after")
	if !strings.Contains(buf.String(), "after") {
		t.Error("debug not logged after SetLevel(debug)")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	for _, ok := range []string{"debug", "info", "WARN", "warning", "error"} {
		if !ValidLevel(ok) {
			t.Errorf("ValidLevel(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", "trace", "fatal"} {
		if ValidLevel(bad) {
			t.Errorf("ValidLevel(%q) = true", bad)
		}
	}
}

func TestSetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})
	SetDefault(l)
	SetDefault(nil)

	if Default() != l {
		t.Error("Default() should return the logger set last")
	}
	slog.Info("via slog")
	if !strings.Contains(buf.String(), "via slog") {
		t.Error("slog default not replaced")
	}
}
