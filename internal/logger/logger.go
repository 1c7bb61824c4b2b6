// Package logger provides the pipeline's stage logger.
// Debug, Info and Warn lines are printed only in verbose mode (--verbose);
// Error lines are always printed. Output goes to stderr so the artifact
// and summary written to stdout stay machine-readable.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects log output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func emit(always bool, level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if always || verbose {
		fmt.Fprintf(output, "["+level+"] "+format+"\n", args...)
	}
}

// Debug prints per-call detail in verbose mode.
func Debug(format string, args ...any) {
	emit(false, "DEBUG", format, args...)
}

// Info prints progress in verbose mode.
func Info(format string, args ...any) {
	emit(false, "INFO", format, args...)
}

// Warn prints recoverable problems in verbose mode.
func Warn(format string, args ...any) {
	emit(false, "WARN", format, args...)
}

// Error prints a failure regardless of verbosity.
func Error(format string, args ...any) {
	emit(true, "ERROR", format, args...)
}

// Section prints a stage header in verbose mode.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Timed prints a stage header and returns a func that logs the stage's duration.
//
//	done := logger.Timed("Fetching")
//	defer done()
func Timed(stage string) func() {
	Section(stage)
	start := time.Now()
	return func() {
		Info("%s finished in %s", stage, time.Since(start).Round(time.Millisecond))
	}
}
