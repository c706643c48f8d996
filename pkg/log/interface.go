// Package log provides structured logging for pipeline runs.
//
// Components obtain a named logger once, at construction, and attach run-scoped
// fields with With:
//
//	logger := log.GetLoggerWithName("pipeline").With(log.RunIDKey, runID)
//	logger.Info("Stage finished",
//	    log.StageKey, "split",
//	    log.SamplesKey, 80,
//	    log.DurationMsKey, 3,
//	)
//	logger.Error("Pipeline failed", err, log.StageKey, "train")
//
// The process-wide provider writes zerolog JSON lines to stderr. SetupLogger
// additionally configures log/slog for code that logs through the standard library.
package log

import (
	"context"
)

// Logger is a slog-style structured logger. Fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)

	// Error logs at error level. When the first field is an error it is attached
	// under "error" together with its structured detail and category, so it needs
	// no key.
	Error(msg string, fields ...any)

	// With returns a logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level are emitted; use it to skip
	// building expensive fields.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with the same values as slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers that share one output and level.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	// SetLevel applies to loggers already handed out.
	SetLevel(level Level)
}
