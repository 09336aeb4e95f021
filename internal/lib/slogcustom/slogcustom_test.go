package slogcustom

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestHandlerWritesAttrsAndFiltersLevel(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger := New(&buf, "warn").With("component", "feed")

	logger.Info("hidden")
	logger.Warn("feed closed", "user_id", "u1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "WARN: feed closed") {
		t.Fatalf("missing message: %q", out)
	}
	if !strings.Contains(out, "component=feed") || !strings.Contains(out, "user_id=u1") {
		t.Fatalf("missing attrs: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"ERROR": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}
