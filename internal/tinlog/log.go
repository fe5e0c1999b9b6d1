// Package tinlog is a thin wrapper over the standard logger, following the
// teacher's own convention (internal/tile.ComputeMemoryLimit) of a verbose
// flag gating non-essential Printf calls rather than a leveled logging
// framework.
package tinlog

import "log"

// Logger gates informational output behind a verbosity flag; warnings are
// always printed. A nil *Logger is valid and behaves as if Verbose is false.
type Logger struct {
	Verbose bool
}

// New returns a Logger with the given verbosity.
func New(verbose bool) *Logger {
	return &Logger{Verbose: verbose}
}

// Infof logs a progress message, but only when verbose.
func (l *Logger) Infof(format string, args ...any) {
	if l == nil || !l.Verbose {
		return
	}
	log.Printf(format, args...)
}

// Warnf always logs, prefixed the way the teacher prefixes its own
// non-fatal warnings.
func (l *Logger) Warnf(format string, args ...any) {
	log.Printf("WARNING: "+format, args...)
}
