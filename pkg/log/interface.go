// Package log provides the structured logging interface used by the training
// and prediction pipeline.
//
// Components receive a Logger and attach context with With:
//
//	logger := log.GetLogger().With(log.ComponentKey, "training")
//	logger.Info("Candidate evaluated",
//	    log.ModelNameKey, "Random Forest",
//	    log.R2ScoreKey, 0.91,
//	)
//
// The process-wide logger is zerolog-backed (NewZerologLogger); SetupLogger
// configures the slog default used by third-party code and the CLI.
package log

import (
	"context"
)

// Logger is a slog-style structured logger. Fields are alternating
// key/value pairs. Error treats a leading error value specially and records
// it under ErrAttrKey.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with slog-compatible values.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
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
