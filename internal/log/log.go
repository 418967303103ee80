package log

import (
	"io"
	"strings"
	"time"

	clog "github.com/charmbracelet/log"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
	LevelNone
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelError:
		return "ERROR"
	case LevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

func LevelFromString(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug
	case "INFO", "WARN":
		return LevelInfo
	case "ERROR":
		return LevelError
	case "NONE", "OFF":
		return LevelNone
	default:
		return LevelInfo
	}
}

func (l Level) charm() clog.Level {
	switch l {
	case LevelDebug:
		return clog.DebugLevel
	case LevelInfo:
		return clog.InfoLevel
	case LevelError:
		return clog.ErrorLevel
	default:
		return clog.FatalLevel + 1
	}
}

// Logger keeps the printf-style leveled API used across the audio core and
// forwards to a charmbracelet logger.
type Logger struct {
	logger *clog.Logger
	level  Level
}

func New(out io.Writer, level Level) *Logger {
	l := clog.NewWithOptions(out, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           level.charm(),
	})
	return &Logger{logger: l, level: level}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger { return New(io.Discard, LevelNone) }

// With returns a child logger tagged with a component prefix.
func (l *Logger) With(prefix string) *Logger {
	return &Logger{logger: l.logger.WithPrefix(prefix), level: l.level}
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.level <= LevelDebug {
		l.logger.Debugf(format, v...)
	}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	if l.level <= LevelInfo {
		l.logger.Infof(format, v...)
	}
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.level <= LevelError {
		l.logger.Errorf(format, v...)
	}
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.level <= LevelInfo { // Warnings are shown at Info level or higher
		l.logger.Warnf(format, v...)
	}
}

// Debug logs structured key/value pairs at debug level.
func (l *Logger) Debug(msg string, kv ...interface{}) {
	if l.level <= LevelDebug {
		l.logger.Debug(msg, kv...)
	}
}

// Info logs structured key/value pairs at info level.
func (l *Logger) Info(msg string, kv ...interface{}) {
	if l.level <= LevelInfo {
		l.logger.Info(msg, kv...)
	}
}

func (l *Logger) SetLevel(level Level) {
	l.level = level
	l.logger.SetLevel(level.charm())
}

func (l *Logger) Level() Level {
	return l.level
}
