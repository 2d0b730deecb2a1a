package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	logger *slog.Logger
)

type ctxKey struct{}

// Config holds logger configuration
type Config struct {
	Level     string // DEBUG, INFO, WARN, ERROR
	Format    string // json, text
	AddSource bool
	Output    io.Writer // defaults to stdout
}

// Init initializes the global logger. Only the first call takes effect.
func Init(cfg Config) {
	once.Do(func() {
		logger = New(cfg)
		slog.SetDefault(logger)
	})
}

// New builds a logger without touching the global one.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog level, defaulting to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the global logger
func Get() *slog.Logger {
	if logger == nil {
		// Default fallback if not initialized
		Init(Config{Level: "INFO", Format: "json"})
	}
	return logger
}

// ContextWithTraceID stores a request trace id on ctx.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// TraceID returns the trace id stored on ctx, if any.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithTraceID adds trace_id to the logger context
func WithTraceID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	traceID := TraceID(ctx)
	if traceID == "" {
		return logger
	}
	return logger.With("trace_id", traceID)
}

// Helper functions for quick logging
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}
