package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name into a LogLevel,
// falling back to LogLevelInfo for unknown input.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger defines the minimal logging interface.
// This allows users to provide their own logger implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// OrNoOp returns l, or a NoOpLogger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NoOpLogger{}
	}
	return l
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// StructuredLogger wraps slog.Logger adding contextual cloning helpers and
// domain convenience methods. Args passed to Debug/Info/Warn/Error are
// slog-style key/value pairs. It is cheap to copy via With* methods.
type StructuredLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]any
	component string
	threadID  string
}

// LoggerConfig configures construction of a StructuredLogger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // json or text
	Output    io.Writer
	AddSource bool
	Component string
	ThreadID  string
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stderr}
}

// NewLogger builds a StructuredLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *StructuredLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return &StructuredLogger{logger: slog.New(handler), level: cfg.Level, context: map[string]any{}, component: cfg.Component, threadID: cfg.ThreadID}
}

// NewSlogLogger creates a new StructuredLogger with the specified configuration.
func NewSlogLogger(level LogLevel, format string, addSource bool) *StructuredLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Slog exposes the underlying *slog.Logger, e.g. for slog.SetDefault.
func (l *StructuredLogger) Slog() *slog.Logger { return l.logger }

func (l *StructuredLogger) clone() *StructuredLogger {
	nl := *l
	nl.context = make(map[string]any, len(l.context))
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *StructuredLogger) WithContext(key string, value any) *StructuredLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (agent, runner, server, etc.).
func (l *StructuredLogger) WithComponent(c string) *StructuredLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithThread attaches a thread identifier.
func (l *StructuredLogger) WithThread(threadID string) *StructuredLogger {
	nl := l.clone()
	nl.threadID = threadID
	return nl
}

func (l *StructuredLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+2)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.threadID != "" {
		attrs = append(attrs, slog.String("thread_id", l.threadID))
	}
	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// log emits one record. skip is the number of frames between runtime.Callers
// and the caller that should be reported as the source.
func (l *StructuredLogger) log(skip int, level slog.Level, allowed bool, msg string, args ...any) {
	if !allowed {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.AddAttrs(l.buildAttrs()...)
	r.Add(args...)
	_ = l.logger.Handler().Handle(context.Background(), r)
}

func (l *StructuredLogger) enabled(level slog.Level) bool {
	switch level {
	case slog.LevelDebug:
		return l.level <= LogLevelDebug
	case slog.LevelInfo:
		return l.level <= LogLevelInfo
	case slog.LevelWarn:
		return l.level <= LogLevelWarn
	default:
		return l.level <= LogLevelError
	}
}

// Debug logs at debug level.
func (l *StructuredLogger) Debug(msg string, args ...any) {
	l.log(3, slog.LevelDebug, l.enabled(slog.LevelDebug), msg, args...)
}

// Info logs at info level.
func (l *StructuredLogger) Info(msg string, args ...any) {
	l.log(3, slog.LevelInfo, l.enabled(slog.LevelInfo), msg, args...)
}

// Warn logs at warn level.
func (l *StructuredLogger) Warn(msg string, args ...any) {
	l.log(3, slog.LevelWarn, l.enabled(slog.LevelWarn), msg, args...)
}

// Error logs at error level.
func (l *StructuredLogger) Error(msg string, args ...any) {
	l.log(3, slog.LevelError, l.enabled(slog.LevelError), msg, args...)
}

// emit is used by the Log* helpers so that a StructuredLogger reports the
// helper's caller as the source.
func emit(l Logger, level slog.Level, msg string, args ...any) {
	if sl, ok := l.(*StructuredLogger); ok {
		sl.log(4, level, sl.enabled(level), msg, args...)
		return
	}

	switch level {
	case slog.LevelDebug:
		l.Debug(msg, args...)
	case slog.LevelInfo:
		l.Info(msg, args...)
	case slog.LevelWarn:
		l.Warn(msg, args...)
	default:
		l.Error(msg, args...)
	}
}

// LogToolCall records one tool execution. Failures are warnings: the loop
// feeds them back to the model.
func LogToolCall(l Logger, tool string, dur time.Duration, err error, args ...any) {
	base := []any{"tool", tool, "duration_ms", dur.Milliseconds(), "success", err == nil}
	if err != nil {
		emit(l, slog.LevelWarn, "tool.call.error", append(append(base, "error", err.Error()), args...)...)
		return
	}
	emit(l, slog.LevelInfo, "tool.call.success", append(base, args...)...)
}

// LogModelCall records model call latency and success.
func LogModelCall(l Logger, model string, dur time.Duration, err error, args ...any) {
	base := []any{"model", model, "duration_ms", dur.Milliseconds(), "success", err == nil}
	if err != nil {
		emit(l, slog.LevelError, "model.call.error", append(append(base, "error", err.Error()), args...)...)
		return
	}
	emit(l, slog.LevelInfo, "model.call.success", append(base, args...)...)
}

// LogExchange records aggregate metrics of one user-facing exchange.
func LogExchange(l Logger, toolCalls int, dur time.Duration, err error, args ...any) {
	base := []any{"tool_calls", toolCalls, "duration_ms", dur.Milliseconds(), "success", err == nil}
	if err != nil {
		emit(l, slog.LevelWarn, "exchange.incomplete", append(append(base, "error", err.Error()), args...)...)
		return
	}
	emit(l, slog.LevelInfo, "exchange.complete", append(base, args...)...)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
