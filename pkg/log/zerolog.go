package log

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	logger zerolog.Logger
	level  Level
}

// NewZerologLogger returns a Logger writing JSON lines to w.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).
		Level(toZerologLevel(level)).
		With().
		Timestamp().
		Logger()
	return &ZerologLogger{logger: zl, level: level}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (z *ZerologLogger) Debug(msg string, fields ...any) {
	emit(z.logger.Debug(), msg, fields)
}

func (z *ZerologLogger) Info(msg string, fields ...any) {
	emit(z.logger.Info(), msg, fields)
}

func (z *ZerologLogger) Warn(msg string, fields ...any) {
	emit(z.logger.Warn(), msg, fields)
}

// Error logs at error level. A leading error value is recorded under
// ErrAttrKey together with its stack trace.
func (z *ZerologLogger) Error(msg string, fields ...any) {
	event := z.logger.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			addError(event, ErrAttrKey, err)
			fields = fields[1:]
		}
	}
	emit(event, msg, fields)
}

func (z *ZerologLogger) With(fields ...any) Logger {
	ctx := z.logger.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ctx = ctx.Str(key, v.Error())
		default:
			ctx = ctx.Interface(key, v)
		}
	}
	return &ZerologLogger{logger: ctx.Logger(), level: z.level}
}

func (z *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= z.level
}

func emit(event *zerolog.Event, msg string, fields []any) {
	if event == nil {
		return
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			addError(event, key, v)
		case string:
			event.Str(key, v)
		case int:
			event.Int(key, v)
		case int64:
			event.Int64(key, v)
		case float64:
			event.Float64(key, v)
		case bool:
			event.Bool(key, v)
		case []string:
			event.Strs(key, v)
		case time.Duration:
			event.Dur(key, v)
		default:
			event.Interface(key, v)
		}
	}
	event.Msg(msg)
}

func addError(event *zerolog.Event, key string, err error) {
	event.Str(key, err.Error())
	if st := extractStacktrace(err); st != "" {
		event.Str(StacktraceAttrKey, st)
	}
	var marshaler zerolog.LogObjectMarshaler
	if asMarshaler(err, &marshaler) {
		event.Object(key+"_detail", marshaler)
	}
}
