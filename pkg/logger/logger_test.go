package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithTraceID(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "INFO", Format: "json", Output: &buf})

	ctx := ContextWithTraceID(context.Background(), "req-1")
	WithTraceID(ctx, l).Info("hello")
	if !strings.Contains(buf.String(), `"trace_id":"req-1"`) {
		t.Errorf("trace id missing from %s", buf.String())
	}

	buf.Reset()
	WithTraceID(context.Background(), l).Info("hello")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("unexpected trace id in %s", buf.String())
	}
}
