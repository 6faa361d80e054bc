// Package logging provides a small levelled key/value logger on top of the
// standard library log package.
//
// Output always goes to the configured writer (stderr in the server binary,
// because stdout carries the MCP protocol).
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel converts a level name (case-insensitive) to a Level.
// Unknown names map to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes levelled messages with trailing key=value pairs.
type Logger struct {
	prefix string
	level  Level
	logger *log.Logger
}

// New creates a logger writing to w. Messages below level are discarded.
func New(w io.Writer, prefix string, level Level) *Logger {
	return &Logger{
		prefix: prefix,
		level:  level,
		logger: log.New(w, fmt.Sprintf("[%s] ", prefix), log.LstdFlags),
	}
}

// NewStderr creates a logger writing to os.Stderr.
func NewStderr(prefix string, level Level) *Logger {
	return New(os.Stderr, prefix, level)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return New(io.Discard, "nop", LevelError+1)
}

// With returns a logger whose prefix is extended with name.
func (l *Logger) With(name string) *Logger {
	return New(l.logger.Writer(), l.prefix+"/"+name, l.level)
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && level >= l.level
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelDebug, msg, keysAndValues...)
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelInfo, msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelWarn, msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV(LevelError, msg, keysAndValues...)
}

func (l *Logger) logWithKV(level Level, msg string, keysAndValues ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	var kv strings.Builder
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&kv, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	l.logger.Printf("[%s] %s%s", level, msg, kv.String())
}
