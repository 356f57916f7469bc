package logger

import (
	"context"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// TraceLogger adapts a zerolog.Logger to pgx's tracelog.Logger interface,
// so statement-level traces from the pool land in the same structured log
// as everything else.
type TraceLogger struct {
	log zerolog.Logger
}

// NewTraceLogger wraps log for use as a pgx statement trace sink.
func NewTraceLogger(log zerolog.Logger) *TraceLogger {
	return &TraceLogger{log: log}
}

// Log implements tracelog.Logger.
func (l *TraceLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var ev *zerolog.Event
	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		ev = l.log.Debug()
	case tracelog.LogLevelInfo:
		ev = l.log.Info()
	case tracelog.LogLevelWarn:
		ev = l.log.Warn()
	case tracelog.LogLevelError:
		ev = l.log.Error()
	default:
		return
	}
	ev.Fields(data).Msg(msg)
}
