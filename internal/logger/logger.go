// Package logger provides leveled structured logging with key/value fields.
//
// Entries are written as single JSON objects through gommon's logger, which is
// also what echo uses, so HTTP and application logs share one format.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
)

const header = `{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F is a shorthand for creating a Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger writes structured entries at or above its level.
type Logger struct {
	base *log.Logger
}

// New creates a logger with the given prefix, level name and output.
func New(prefix, level string, out io.Writer) *Logger {
	l := log.New(prefix)
	l.DisableColor()
	l.SetHeader(header)
	l.SetLevel(ParseLevel(level))
	if out != nil {
		l.SetOutput(out)
	}
	return &Logger{base: l}
}

// ParseLevel converts DEBUG/INFO/WARN/ERROR/OFF to a gommon level; unknown names map to INFO.
func ParseLevel(s string) log.Lvl {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return log.DEBUG
	case "WARN", "WARNING":
		return log.WARN
	case "ERROR":
		return log.ERROR
	case "OFF":
		return log.OFF
	default:
		return log.INFO
	}
}

// Base exposes the underlying gommon logger, e.g. to install as echo's e.Logger.
func (l *Logger) Base() *log.Logger {
	return l.base
}

// With returns a child logger whose entries carry the given fields.
func (l *Logger) With(fields ...Field) *Child {
	return &Child{parent: l, fields: fields}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.base.Debugj(entry(msg, fields)) }
func (l *Logger) Info(msg string, fields ...Field)  { l.base.Infoj(entry(msg, fields)) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.base.Warnj(entry(msg, fields)) }
func (l *Logger) Error(msg string, fields ...Field) { l.base.Errorj(entry(msg, fields)) }

// Child is a logger bound to a fixed set of fields.
type Child struct {
	parent *Logger
	fields []Field
}

func (c *Child) Debug(msg string, fields ...Field) { c.parent.Debug(msg, c.merge(fields)...) }
func (c *Child) Info(msg string, fields ...Field)  { c.parent.Info(msg, c.merge(fields)...) }
func (c *Child) Warn(msg string, fields ...Field)  { c.parent.Warn(msg, c.merge(fields)...) }
func (c *Child) Error(msg string, fields ...Field) { c.parent.Error(msg, c.merge(fields)...) }

func (c *Child) merge(fields []Field) []Field {
	out := make([]Field, 0, len(c.fields)+len(fields))
	out = append(out, c.fields...)
	return append(out, fields...)
}

func entry(msg string, fields []Field) log.JSON {
	j := log.JSON{"message": msg}
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			j[f.Key] = err.Error()
			continue
		}
		j[f.Key] = f.Value
	}
	return j
}

var (
	mu  sync.RWMutex
	std = New("modtracker", "INFO", os.Stderr)
)

// Init replaces the package-level logger.
func Init(prefix, level string, out io.Writer) *Logger {
	l := New(prefix, level, out)
	mu.Lock()
	std = l
	mu.Unlock()
	return l
}

// Default returns the package-level logger.
func Default() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// Debug logs a debug message
func Debug(msg string, fields ...Field) { Default().Debug(msg, fields...) }

// Info logs an info message
func Info(msg string, fields ...Field) { Default().Info(msg, fields...) }

// Warn logs a warning message
func Warn(msg string, fields ...Field) { Default().Warn(msg, fields...) }

// Error logs an error message
func Error(msg string, fields ...Field) { Default().Error(msg, fields...) }
