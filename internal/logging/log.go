// Package logging is a thin leveled wrapper over the standard log
// package. Pipeline stages log progress at Info, data-quality findings
// at Warn, and per-chain detail at Debug.
package logging

import (
	"log"
	"os"
)

// LogLevel orders verbosity from Error (always emitted) to Debug.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Logger filters messages below its configured level.
type Logger struct {
	level LogLevel
}

func NewLogger(level LogLevel) *Logger {
	return &Logger{level: level}
}

// NewDefaultLogger reads LOG_LEVEL from the environment, defaulting to
// Info when unset or unrecognized.
func NewDefaultLogger() *Logger {
	return &Logger{level: parseLevel(os.Getenv("LOG_LEVEL"))}
}

func parseLevel(s string) LogLevel {
	switch s {
	case "ERROR":
		return LogLevelError
	case "WARN":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.level >= LogLevelError {
		log.Printf("[ERROR] "+format, args...)
	}
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogLevelWarn {
		log.Printf("[WARN] "+format, args...)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogLevelInfo {
		log.Printf("[INFO] "+format, args...)
	}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// DefaultLogger is the process-wide logger used when no explicit
// logger is wired in.
var DefaultLogger = NewDefaultLogger()
