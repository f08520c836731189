package main

import (
	"bytes"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebas/incallcore/internal/incall/config"
	"github.com/sebas/incallcore/internal/logger"
)

func testConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	fs := flag.NewFlagSet("incallcore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg, err := config.Parse(fs, args, func(string) string { return "" })
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cfg
}

func keepDefaultLogger(t *testing.T) {
	prev, level := slog.Default(), logger.GetLevel()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		logger.SetLevel(level)
	})
}

func TestExecuteFailureReturnsOneAndFlushesLog(t *testing.T) {
	keepDefaultLogger(t)
	logFile := filepath.Join(t.TempDir(), "incallcore.log")
	cfg := testConfig(t, "-logfile", logFile, "-scenario", filepath.Join(t.TempDir(), "missing.json"))

	var stderr bytes.Buffer
	if code := execute(cfg, &stderr); code != 1 {
		t.Fatalf("execute() = %d, want 1", code)
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "Replay failed") {
		t.Errorf("log file missing failure line:\n%s", data)
	}
	if !strings.Contains(stderr.String(), "Replay failed") {
		t.Errorf("stderr missing failure line:\n%s", stderr.String())
	}
}

func TestExecuteNoScenario(t *testing.T) {
	keepDefaultLogger(t)
	if code := execute(testConfig(t), io.Discard); code != 1 {
		t.Errorf("execute() = %d, want 1", code)
	}
}

func TestExecuteScenario(t *testing.T) {
	keepDefaultLogger(t)
	dir := t.TempDir()
	scenario := filepath.Join(dir, "voice.json")
	body := `{"name":"voice","steps":[
		{"op":"foreground","value":true},
		{"op":"state","state":"INCALL","calls":[{"id":"c1","state":"ACTIVE"}]},
		{"op":"state","state":"NO_CALLS"}
	]}`
	if err := os.WriteFile(scenario, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg := testConfig(t, "-scenario", scenario, "-loglevel", "info")

	var stderr bytes.Buffer
	if code := execute(cfg, &stderr); code != 0 {
		t.Fatalf("execute() = %d, want 0\n%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "Scenario finished") {
		t.Errorf("stderr missing scenario end:\n%s", stderr.String())
	}
}
