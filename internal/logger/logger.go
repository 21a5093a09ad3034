// Package logger provides a small leveled logger for the application.
// It supports three levels: off (no output), normal (info/warn/error),
// and verbose (includes debug). Child loggers created with Named share
// the parent's level and output. The logger is safe for concurrent use.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level controls the verbosity of the logger.
type Level int

const (
	// LevelOff disables all log output.
	LevelOff Level = iota
	// LevelNormal enables info, warn, and error output.
	LevelNormal
	// LevelVerbose enables all output including debug.
	LevelVerbose
)

// String returns the flag-style name of the level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelNormal:
		return "normal"
	case LevelVerbose:
		return "verbose"
	default:
		return "unknown"
	}
}

// state is shared between a logger and all of its named children.
type state struct {
	mu     sync.RWMutex
	level  Level
	debug  *log.Logger
	info   *log.Logger
	warn   *log.Logger
	errLog *log.Logger
}

// Logger is a leveled logger. All methods are safe for concurrent use.
type Logger struct {
	st     *state
	prefix string
}

// New creates a logger with the given level, writing to the given output.
// If out is nil, os.Stderr is used.
func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}

	flags := log.Ltime | log.Lmicroseconds

	return &Logger{st: &state{
		level:  level,
		debug:  log.New(out, "[DBG] ", flags),
		info:   log.New(out, "[INF] ", flags),
		warn:   log.New(out, "[WRN] ", flags),
		errLog: log.New(out, "[ERR] ", flags),
	}}
}

// Named returns a child logger whose messages are prefixed with name.
func (l *Logger) Named(name string) *Logger {
	p := name + ": "
	if l.prefix != "" {
		p = l.prefix + name + ": "
	}
	return &Logger{st: l.st, prefix: p}
}

// SetLevel changes the log level at runtime for this logger and its children.
func (l *Logger) SetLevel(level Level) {
	l.st.mu.Lock()
	defer l.st.mu.Unlock()
	l.st.level = level
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	l.st.mu.RLock()
	defer l.st.mu.RUnlock()
	return l.st.level
}

func (l *Logger) output(min Level, dst *log.Logger, format string, args []any) {
	l.st.mu.RLock()
	defer l.st.mu.RUnlock()
	if l.st.level >= min {
		dst.Output(3, l.prefix+fmt.Sprintf(format, args...))
	}
}

// Debug logs a message at debug level (only visible in verbose mode).
func (l *Logger) Debug(format string, args ...any) {
	l.output(LevelVerbose, l.st.debug, format, args)
}

// Info logs a message at info level.
func (l *Logger) Info(format string, args ...any) {
	l.output(LevelNormal, l.st.info, format, args)
}

// Warn logs a message at warn level.
func (l *Logger) Warn(format string, args ...any) {
	l.output(LevelNormal, l.st.warn, format, args)
}

// Error logs a message at error level.
func (l *Logger) Error(format string, args ...any) {
	l.output(LevelNormal, l.st.errLog, format, args)
}
