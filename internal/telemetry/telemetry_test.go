package telemetry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/koscakluka/clipspeak/internal/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log"
)

func TestSetupWritesLogsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipspeak.log")
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{LogLevel: "info", LogFile: path}, "clipspeak-test", "test", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}

	logger := otelslog.NewLogger("github.com/koscakluka/clipspeak/internal/telemetry/test")
	logger.Debug("hidden debug line")
	logger.Info("visible info line")

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "visible info line") {
		t.Fatalf("expected info record in log file, got %q", data)
	}
	if strings.Contains(string(data), "hidden debug line") {
		t.Fatalf("expected debug record to be filtered out")
	}
}

func TestSetupFallsBackToWriter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{LogLevel: "debug"}, "clipspeak-test", "test", &buf)
	if err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}

	otelslog.NewLogger("github.com/koscakluka/clipspeak/internal/telemetry/test").Debug("debug line")

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if !strings.Contains(buf.String(), "debug line") {
		t.Fatalf("expected debug record in writer, got %q", buf.String())
	}
}

func TestSetupFailsOnUnwritableLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "clipspeak.log")
	if _, err := Setup(context.Background(), config.TelemetryConfig{LogFile: path}, "clipspeak-test", "test", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for log file in missing directory")
	}
}

func TestParseSeverity(t *testing.T) {
	testCases := map[string]log.Severity{
		"debug":   log.SeverityDebug,
		" INFO ":  log.SeverityInfo,
		"warn":    log.SeverityWarn,
		"error":   log.SeverityError,
		"verbose": log.SeverityInfo,
	}

	for level, expected := range testCases {
		if got := ParseSeverity(level); got != expected {
			t.Fatalf("expected %v for %q, got %v", expected, level, got)
		}
	}
}
