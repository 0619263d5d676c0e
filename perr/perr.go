// Package perr defines the error taxonomy shared across the PSLP core.
//
// Every kind is a sentinel error suitable for errors.Is; callers
// distinguish failure classes without depending on concrete error
// types. Solver outcomes are never represented here — those are plain
// values (see package lp's Status), not errors.
package perr

import (
	"errors"
	"fmt"
)

// Kinds of failure produced by the numeric kernels, the tagger, the
// consensus builders and the ILP layer.
var (
	// InvalidRange marks an empty or malformed numeric input, e.g. an
	// empty sequence passed to a median or quantile reducer.
	InvalidRange = errors.New("invalid range")

	// IndexOutOfRange marks access to a column or row beyond an LP
	// model's current arena.
	IndexOutOfRange = errors.New("index out of range")

	// InvalidValue marks a parameter outside its accepted domain, e.g.
	// a negative tolerance or a quantile outside (0,100].
	InvalidValue = errors.New("invalid value")

	// ParseError marks an input string that does not match the
	// required grammar (LP/MPS text, empirical formula, ...).
	ParseError = errors.New("parse error")

	// EmptyModel marks an ILP built with zero variables or zero rows.
	EmptyModel = errors.New("empty model")

	// IO marks an external file or format failure. It is surfaced to
	// the caller, never recovered inside the core.
	IO = errors.New("io error")
)

// Wrap attaches msg as context to a sentinel kind, preserving it for
// errors.Is(err, kind).
func Wrap(kind error, msg string) error {
	return &wrapped{kind: kind, msg: msg}
}

// Wrapf is Wrap with fmt-style formatting.
func Wrapf(kind error, format string, args ...any) error {
	return &wrapped{kind: kind, msg: fmt.Sprintf(format, args...)}
}

type wrapped struct {
	kind error
	msg  string
}

func (w *wrapped) Error() string { return w.msg + ": " + w.kind.Error() }
func (w *wrapped) Unwrap() error { return w.kind }
