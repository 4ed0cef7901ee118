package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/imrcast/pkg/errors"
)

// SetupLogger installs a JSON slog handler as the slog default and a
// zerolog-backed Logger as the package default, both writing to stderr at
// the given level ("debug", "info", "warn", "error").
func SetupLogger(loglevel string) error {
	return SetupLoggerWithWriter(loglevel, os.Stderr)
}

// SetupLoggerWithWriter is SetupLogger with an explicit destination.
func SetupLoggerWithWriter(loglevel string, w io.Writer) error {
	level, err := ToLogLevel(loglevel)
	if err != nil {
		return err
	}

	ops := slog.HandlerOptions{
		AddSource: level == LevelDebug,
		Level:     slog.Level(level),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "severity"
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	}
	handler := slog.NewJSONHandler(w, &ops)
	slog.SetDefault(slog.New(WrapByErrFmtHandler(handler)))

	logger := NewZerologLogger(w, level)
	SetLogger(logger)
	errors.SetZerologWarnFunc(func(warning error) {
		logger.Warn("warning", ErrAttrKey, warning)
	})
	return nil
}

// ToLogLevel parses a level name.
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValueError("ToLogLevel", fmt.Sprintf("invalid log level %q", level))
	}
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = NewZerologLogger(os.Stderr, LevelInfo)
)

// GetLogger returns the process-wide Logger.
func GetLogger() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetLogger replaces the process-wide Logger.
func SetLogger(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Discard returns a Logger that drops every record.
func Discard() Logger {
	return &ZerologLogger{logger: zerolog.Nop()}
}
