// Package logger provides leveled logging for the riffle application.
//
// The package exposes printf-style functions at four levels (Debug, Info,
// Warn, Error). Debug output is suppressed unless enabled with SetDebug.
// All output goes to stderr so command results on stdout stay parseable.
package logger

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

var debugEnabled atomic.Bool

// SetDebug enables or disables debug-level output.
//
// This is typically called once at startup based on the --verbose flag.
// Safe for concurrent use.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// Debug logs a debug-level message. No-op unless SetDebug(true) was called.
func Debug(format string, args ...interface{}) {
	if debugEnabled.Load() {
		write("DEBUG", format, args...)
	}
}

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	write("INFO", format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	write("WARN", format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	write("ERROR", format, args...)
}

func write(level, format string, args ...interface{}) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(os.Stderr, "%s [%s] %s\n", ts, level, fmt.Sprintf(format, args...))
}
