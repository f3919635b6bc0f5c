package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLoggerWritesStageFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	logger.Info("parsed dump", "objects", 48213, "roots", 12)

	out := buf.String()
	if out == "" {
		t.Fatal("logger wrote nothing")
	}
	for _, want := range []string{"parsed dump", "objects", "48213", "roots"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}
}

func TestNewLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		emit    func(*log.Logger)
		wantLog bool
	}{
		{
			name:    "stage summary at info",
			level:   log.InfoLevel,
			emit:    func(l *log.Logger) { l.Info("indexed graph", "nodes", 4) },
			wantLog: true,
		},
		{
			name:    "cache detail suppressed at info",
			level:   log.InfoLevel,
			emit:    func(l *log.Logger) { l.Debug("graph cache hit", "key", "graph:ab12") },
			wantLog: false,
		},
		{
			name:    "cache detail shown at debug",
			level:   log.DebugLevel,
			emit:    func(l *log.Logger) { l.Debug("graph cache hit", "key", "graph:ab12") },
			wantLog: true,
		},
		{
			name:    "warning shown at warn",
			level:   log.WarnLevel,
			emit:    func(l *log.Logger) { l.Warn("dump has unreachable objects", "count", 7) },
			wantLog: true,
		},
		{
			name:    "stage summary suppressed at warn",
			level:   log.WarnLevel,
			emit:    func(l *log.Logger) { l.Info("indexed graph", "nodes", 4) },
			wantLog: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(newLogger(&buf, tt.level))

			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("wrote output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgressReportsElapsedStage(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	prog := newProgress(logger)
	time.Sleep(10 * time.Millisecond)
	prog.done("Indexed 48213 objects")

	out := buf.String()
	if !strings.Contains(out, "Indexed 48213 objects") {
		t.Errorf("progress line %q missing the stage message", out)
	}
	// Elapsed time is appended in parentheses, e.g. "(12ms)".
	if !strings.Contains(out, "(") || !strings.Contains(out, ")") {
		t.Errorf("progress line %q missing the elapsed duration", out)
	}
}

func TestLoggerRoundTripsThroughContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.DebugLevel)

	ctx := withLogger(context.Background(), logger)
	got := loggerFromContext(ctx)
	if got != logger {
		t.Fatal("loggerFromContext returned a different logger")
	}

	got.Debug("resolved dump path", "path", "app.heapdump.json")
	if buf.Len() == 0 {
		t.Error("context-carried logger wrote nothing")
	}
}

func TestLoggerFromContextFallsBackToDefault(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Error("want the default logger when the context carries none")
	}
}
