// Package diag provides the diagnostic sink used throughout the PSLP
// core. Diagnostic output (progress, warnings, cluster-size reports)
// is kept separate from error returns so the core stays headless and
// testable: callers inject a Logger rather than reach for a package
// global, matching the "no process-wide singletons" rule.
package diag

import (
	"io"
	"log"
)

// Logger receives diagnostic messages. Printf is informational;
// Warnf flags a condition the caller may want to act on (e.g. a
// filter that discarded every data point).
type Logger interface {
	Printf(format string, args ...any)
	Warnf(format string, args ...any)
}

// StdLogger adapts the standard library's log.Logger to Logger,
// matching the teacher's own unadorned use of the "log" package for
// every diagnostic message. Callers construct it explicitly; a
// component given a nil Logger falls back to Discard, not StdLogger.
type StdLogger struct {
	*log.Logger
}

// NewStdLogger returns a StdLogger writing to w with no extra
// timestamp flags, so output is reproducible in tests.
func NewStdLogger(w io.Writer) StdLogger {
	return StdLogger{Logger: log.New(w, "", 0)}
}

func (l StdLogger) Printf(format string, args ...any) { l.Logger.Printf(format, args...) }
func (l StdLogger) Warnf(format string, args ...any)  { l.Logger.Printf("warning: "+format, args...) }

// Discard is a Logger that drops every message; it is useful in tests
// that only assert on return values.
var Discard Logger = discard{}

type discard struct{}

func (discard) Printf(string, ...any) {}
func (discard) Warnf(string, ...any)  {}
