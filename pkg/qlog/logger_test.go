package qlog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerFormatsAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(slog.LevelInfo, &buf)

	log.With("photon", "counter").Warn("port in use", "port", 8080)

	out := buf.String()
	if !strings.HasPrefix(out, "⚠️  port in use") {
		t.Fatalf("unexpected prefix: %q", out)
	}
	if !strings.Contains(out, "photon=counter, port=8080") {
		t.Fatalf("expected attrs in output, got %q", out)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(slog.LevelWarn, &buf)

	log.Info("hidden")
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
