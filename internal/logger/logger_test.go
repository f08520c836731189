package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelDebug},
		{"", slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetLevel(t *testing.T) {
	defer SetLevel("debug")

	SetLevel("warn")
	if got := GetLevel(); got != "warn" {
		t.Errorf("GetLevel() = %q, want %q", got, "warn")
	}

	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf))
	log.Info("[Core] Dropped")
	log.Warn("[Core] Kept")
	out := buf.String()
	if strings.Contains(out, "Dropped") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "[WARN] [Core] Kept") {
		t.Errorf("output = %q, want warn line", out)
	}
}

func TestHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf)).With("call", "c1").WithGroup("video")
	log.Debug("[Video] Camera opened", "id", "0")

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "[") {
		t.Fatalf("line = %q, want timestamp prefix", line)
	}
	for _, part := range []string{"[DEBUG] [Video] Camera opened", "call=c1", "video.id=0"} {
		if !strings.Contains(line, part) {
			t.Errorf("line = %q, missing %q", line, part)
		}
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("wrote %d lines, want 1", strings.Count(buf.String(), "\n"))
	}
}

func TestMultiLevelHandler(t *testing.T) {
	var console, file bytes.Buffer
	h := NewMultiLevelHandler(map[io.Writer]slog.Level{
		&console: slog.LevelWarn,
		&file:    slog.LevelDebug,
	})
	log := slog.New(h)
	log.Debug("[Tracker] Primary changed")
	log.Error("[Core] Listener panicked")

	if strings.Contains(console.String(), "Primary changed") {
		t.Errorf("console = %q, want no debug line", console.String())
	}
	if !strings.Contains(console.String(), "Listener panicked") {
		t.Errorf("console = %q, want error line", console.String())
	}
	if !strings.Contains(file.String(), "Primary changed") || !strings.Contains(file.String(), "Listener panicked") {
		t.Errorf("file = %q, want both lines", file.String())
	}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled(debug) = false, want true")
	}
}

func TestRotatingFile(t *testing.T) {
	path := t.TempDir() + "/incall.log"
	w := NewRotatingFile(path, 0, 2)
	defer w.Close()

	log := slog.New(NewHandler(w))
	log.Info("[Core] Started")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "[INFO] [Core] Started") {
		t.Errorf("file = %q, want started line", data)
	}
}
