// Package logger provides the engine's leveled logging interface.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger is a simple leveled wrapper over the standard library logger.
type Logger struct {
	logger *log.Logger
}

// New creates a new Logger writing to stdout.
func New() *Logger {
	return &Logger{
		logger: log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile),
	}
}

// Info logs an info-level message with optional key/value pairs.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.logger.Printf("[INFO] %s", formatMessage(msg, args...))
}

// Error logs an error-level message with optional key/value pairs.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.logger.Printf("[ERROR] %s", formatMessage(msg, args...))
}

// Warn logs a warning-level message with optional key/value pairs.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.logger.Printf("[WARN] %s", formatMessage(msg, args...))
}

// Debug logs a debug-level message with optional key/value pairs.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.logger.Printf("[DEBUG] %s", formatMessage(msg, args...))
}

func formatMessage(msg string, args ...interface{}) string {
	if len(args) == 0 {
		return msg
	}
	var b strings.Builder
	if len(args)%2 == 0 {
		b.WriteString(msg)
		for i := 0; i < len(args); i += 2 {
			b.WriteString(fmt.Sprintf(" %v=%v", args[i], args[i+1]))
		}
		return b.String()
	}
	b.WriteString(fmt.Sprintf("%s %v", msg, args))
	return b.String()
}
