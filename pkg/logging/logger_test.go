package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nodedesk/pkg/config"
	"nodedesk/pkg/settings"
)

func TestInit(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tempDir := t.TempDir()
	serverLog := filepath.Join(tempDir, "nodedesk.log")
	requestLog := filepath.Join(tempDir, "requests.log")

	// A previous run's log is rotated, not appended to.
	if err := os.WriteFile(serverLog, []byte("old run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.LogConfig{
		Server:   config.LogSettings{Path: serverLog, Level: "DEBUG"},
		Requests: config.LogSettings{Path: requestLog, Level: "INFO"},
	}

	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer cleanup()

	if _, err := os.Stat(serverLog); os.IsNotExist(err) {
		t.Error("Server log file not created")
	}
	if _, err := os.Stat(requestLog); os.IsNotExist(err) {
		t.Error("Request log file not created")
	}
	if old, err := os.ReadFile(serverLog + ".old"); err != nil || string(old) != "old run\n" {
		t.Errorf("previous log not rotated: %q, %v", old, err)
	}
	if RequestLogger == nil {
		t.Error("RequestLogger was not initialized")
	}

	slog.Info("captured line", "k", "v")
	if got := GlobalLogCapture.GetLastLine(); !strings.Contains(got, "captured line") {
		t.Errorf("capture = %q, want the last info line", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"TRACE", LevelTrace},
		{"Trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"Info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetLevel(t *testing.T) {
	prev := Level()
	t.Cleanup(func() { level.Set(prev) })

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelName,
	}))

	SetLevel(settings.LogWarn)
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info written at Warn level: %q", buf.String())
	}

	SetLevel(settings.LogTrace)
	Trace(logger, "deep detail")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("trace line missing or mislabeled: %q", buf.String())
	}
}

func TestFloorLevel(t *testing.T) {
	var v slog.LevelVar
	f := floorLevel{base: &v, floor: slog.LevelInfo}

	v.Set(slog.LevelDebug)
	if f.Level() != slog.LevelInfo {
		t.Errorf("floor not applied: %v", f.Level())
	}
	v.Set(slog.LevelError)
	if f.Level() != slog.LevelError {
		t.Errorf("base above floor not followed: %v", f.Level())
	}
}

func TestCaptureTrimsNewline(t *testing.T) {
	w := &LogCaptureWriter{}
	if _, err := w.Write([]byte("line\n")); err != nil {
		t.Fatal(err)
	}
	if w.GetLastLine() != "line" {
		t.Errorf("GetLastLine() = %q", w.GetLastLine())
	}
}

func TestLevelName(t *testing.T) {
	tests := map[slog.Level]string{
		LevelTrace:      "TRACE",
		slog.LevelDebug: "DEBUG",
		slog.LevelWarn:  "WARN",
	}
	for l, want := range tests {
		if got := LevelName(l); got != want {
			t.Errorf("LevelName(%v) = %q, want %q", l, got, want)
		}
	}
}
