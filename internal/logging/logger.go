// Package logging provides the structured logger shared by the client, the TUI and the CLI.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging surface used across term-chat.
// Arguments after msg are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(key string, value any) Logger
}

type ZeroLogger struct {
	logger zerolog.Logger
}

// New returns a console logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level string) *ZeroLogger {
	if w == nil {
		w = os.Stderr
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		l = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !isTerminal(w)}
	z := zerolog.New(output).Level(l).With().Timestamp().Logger()
	return &ZeroLogger{logger: z}
}

// NewJSON returns a logger emitting one JSON object per line, used for log files.
func NewJSON(w io.Writer, level string) *ZeroLogger {
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		l = zerolog.InfoLevel
	}
	return &ZeroLogger{logger: zerolog.New(w).Level(l).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &ZeroLogger{logger: zerolog.Nop()}
}

func (l *ZeroLogger) Debug(msg string, args ...any) {
	l.emit(l.logger.Debug(), msg, args)
}

func (l *ZeroLogger) Info(msg string, args ...any) {
	l.emit(l.logger.Info(), msg, args)
}

func (l *ZeroLogger) Warn(msg string, args ...any) {
	l.emit(l.logger.Warn(), msg, args)
}

func (l *ZeroLogger) Error(msg string, args ...any) {
	l.emit(l.logger.Error(), msg, args)
}

func (l *ZeroLogger) With(key string, value any) Logger {
	return &ZeroLogger{logger: l.logger.With().Interface(key, value).Logger()}
}

func (l *ZeroLogger) emit(e *zerolog.Event, msg string, args []any) {
	if len(args) > 0 {
		e = e.Fields(toFields(args...))
	}
	e.Msg(msg)
}

func toFields(args ...any) map[string]any {
	fields := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		if err, isErr := args[i+1].(error); isErr {
			fields[key] = err.Error()
			continue
		}
		fields[key] = args[i+1]
	}
	return fields
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
