package buildinfo

import (
	"runtime"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	tests := []struct {
		name  string
		value string
	}{
		{"Version", info.Version},
		{"Commit", info.Commit},
		{"BuildTime", info.BuildTime},
		{"GoVersion", info.GoVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value == "" {
				t.Errorf("%s field should not be empty", tt.name)
			}
		})
	}
}

func TestGet_GoVersionFallback(t *testing.T) {
	if GoVersion != "unknown" {
		t.Skip("GoVersion injected via ldflags")
	}
	if got := Get().GoVersion; got != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", got, runtime.Version())
	}
}

func TestString(t *testing.T) {
	s := String()
	info := Get()

	expected := info.Version + " (" + info.Commit + ") built at " + info.BuildTime
	if s != expected {
		t.Errorf("String() = %q, want %q", s, expected)
	}
	if !strings.Contains(s, "built at") {
		t.Errorf("String() = %q, missing build time", s)
	}
}
