package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Logger is a leveled, printf-style logger safe for concurrent use.
// Operations tag their lines through With, which returns a child logger
// sharing the parent's output, level, and lock.
type Logger struct {
	shared *state
	prefix string
}

type state struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
}

func New(out io.Writer, level Level, prefix string) *Logger {
	return &Logger{
		shared: &state{level: level, out: out},
		prefix: prefix,
	}
}

func Default() *Logger {
	return New(os.Stderr, LevelInfo, "[dynaplan]")
}

// With returns a child logger whose prefix carries an extra tag,
// typically the operation ID.
func (l *Logger) With(tag string) *Logger {
	return &Logger{
		shared: l.shared,
		prefix: l.prefix + " " + tag,
	}
}

func (l *Logger) SetLevel(level Level) {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	l.shared.level = level
}

func (l *Logger) SetOutput(out io.Writer) {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	l.shared.out = out
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()

	if level < l.shared.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, args...)

	fmt.Fprintf(l.shared.out, "%s %s%s %s\n", timestamp, l.prefix, levelToString(level), message)
}

func levelToString(level Level) string {
	switch level {
	case LevelDebug:
		return " [DEBUG]"
	case LevelInfo:
		return " [INFO]"
	case LevelWarn:
		return " [WARN]"
	case LevelError:
		return " [ERROR]"
	default:
		return " [?]"
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}
