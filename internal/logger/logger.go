// Package logger provides leveled logging for the filings CLI.
// Debug and Info messages are printed only in verbose mode (the --verbose
// flag); warnings and errors are always printed. Output goes to stderr so
// answers on stdout stay clean.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
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

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func write(always bool, level, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !always && !verbose {
		return
	}
	fmt.Fprintf(output, "["+level+"] "+prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	write(false, "DEBUG", "", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	write(false, "INFO", "", format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	write(true, "WARN", "", format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	write(true, "ERROR", "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Scoped prefixes every message with fixed key=value context,
// e.g. the pipeline run id and document id.
type Scoped struct {
	prefix string
}

// With returns a scoped logger. Pairs are rendered as "k=v".
func With(pairs ...string) Scoped {
	return Scoped{}.With(pairs...)
}

// With extends the scope with more pairs.
func (s Scoped) With(pairs ...string) Scoped {
	prefix := s.prefix
	for i := 0; i+1 < len(pairs); i += 2 {
		prefix += pairs[i] + "=" + pairs[i+1] + " "
	}
	return Scoped{prefix: prefix}
}

// Debug prints a scoped message if verbose mode is enabled.
func (s Scoped) Debug(format string, args ...any) {
	write(false, "DEBUG", s.prefix, format, args...)
}

// Info prints a scoped message if verbose mode is enabled.
func (s Scoped) Info(format string, args ...any) {
	write(false, "INFO", s.prefix, format, args...)
}

// Warn prints a scoped warning.
func (s Scoped) Warn(format string, args ...any) {
	write(true, "WARN", s.prefix, format, args...)
}

// Error prints a scoped error.
func (s Scoped) Error(format string, args ...any) {
	write(true, "ERROR", s.prefix, format, args...)
}
