// Package logger provides logging utilities for the harvester.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Logger provides structured logging functionality.
type Logger struct {
	internal zerolog.Logger
	level    zerolog.Level
}

// NewLogger creates a console logger on stderr with the specified level.
func NewLogger(level string) *Logger {
	return NewLoggerWithWriter(level, FormatConsole, os.Stderr)
}

// NewLoggerWithWriter creates a logger writing to w in the given format.
func NewLoggerWithWriter(level, format string, w io.Writer) *Logger {
	lvl := parseLevel(level)

	out := w
	if strings.ToLower(format) != FormatJSON {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		}
	}

	internal := zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	return &Logger{
		internal: internal,
		level:    lvl,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{
		internal: zerolog.Nop(),
		level:    zerolog.Disabled,
	}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
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

// Info logs an info level message.
func (l *Logger) Info(msg string, args ...any) {
	l.internal.Info().Fields(args).Msg(msg)
}

// Error logs an error level message.
func (l *Logger) Error(msg string, args ...any) {
	l.internal.Error().Fields(args).Msg(msg)
}

// Debug logs a debug level message.
func (l *Logger) Debug(msg string, args ...any) {
	l.internal.Debug().Fields(args).Msg(msg)
}

// Warn logs a warning level message.
func (l *Logger) Warn(msg string, args ...any) {
	l.internal.Warn().Fields(args).Msg(msg)
}

// With creates a child logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		internal: l.internal.With().Fields(args).Logger(),
		level:    l.level,
	}
}

// Level returns the configured minimum level name.
func (l *Logger) Level() string {
	return l.level.String()
}
