package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

const redacted = "[REDACTED]"

// Logger writes human-oriented CLI messages with optional color. Debug
// lines are dropped unless debug mode is on.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	debug   bool
	noColor bool
}

// New creates a logger writing to stderr.
func New(debug, noColor bool) *Logger {
	return NewWithWriter(os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	return &Logger{
		out:     w,
		debug:   debug,
		noColor: noColor,
	}
}

// DebugEnabled reports whether Debug output is written.
func (l *Logger) DebugEnabled() bool {
	return l.debug
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit("\033[32m", "✓", format, args)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit("\033[33m", "⚠", format, args)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit("\033[31m", "✗", format, args)
}

// Debug logs a debug message if debug mode is enabled. It satisfies
// keychain.Logger.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.emit("\033[36m", "[DEBUG]", format, args)
}

func (l *Logger) emit(color, marker, format string, args []interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.noColor {
		fmt.Fprintf(l.out, "%s %s\n", marker, msg)
		return
	}
	fmt.Fprintf(l.out, "%s%s\033[0m %s\n", color, marker, msg)
}

// SecretBytes is a binary payload that must never reach a log line. Only
// its length is shown.
type SecretBytes []byte

// Format implements fmt.Formatter for every verb, including %x and %q.
func (b SecretBytes) Format(f fmt.State, _ rune) {
	fmt.Fprintf(f, "%s(%d bytes)", redacted, len(b))
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, redacted)
		}
	}
	return result
}
