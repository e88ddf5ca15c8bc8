package helpers

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Logger provides simplified logging with prefixes. Extra arguments are
// key/value pairs rendered as key=value.
type Logger struct {
	prefix string
	out    *log.Logger
}

// NewLogger creates a new logger with a prefix that writes to the standard logger
func NewLogger(prefix string) *Logger {
	return &Logger{prefix: "[" + prefix + "]", out: log.Default()}
}

// NewLoggerTo creates a prefixed logger writing to w.
func NewLoggerTo(prefix string, w io.Writer) *Logger {
	return &Logger{prefix: "[" + prefix + "]", out: log.New(w, "", 0)}
}

// Info logs an info message
func (l *Logger) Info(msg string, kv ...interface{}) {
	l.print("INFO", msg, kv)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.print("WARN", msg, kv)
}

// Error logs an error message
func (l *Logger) Error(msg string, err error, kv ...interface{}) {
	l.print("ERROR", msg+" - "+fmt.Sprint(err), kv)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.print("DEBUG", msg, kv)
}

func (l *Logger) print(level, msg string, kv []interface{}) {
	var b strings.Builder
	b.WriteString(l.prefix)
	b.WriteString(" ")
	b.WriteString(level)
	b.WriteString(": ")
	b.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, " %v", kv[i])
		}
	}
	l.out.Print(b.String())
}
