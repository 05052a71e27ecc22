// Package errs defines the error taxonomy shared across the engine.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error so the CLI can choose an exit status and
// so callers can branch without string-matching messages.
type Kind int

const (
	// Config covers missing/duplicate meta-table rows, unknown references,
	// and dependency cycles. Loading aborts immediately; there is no
	// partial configuration.
	Config Kind = iota
	// Input covers malformed JSON rows and missing required API fields.
	Input
	// Data covers database shapes the engine did not expect (row number
	// not found, aggregate column missing).
	Data
	// Database wraps a driver error.
	Database
	// Serialization covers JSON encoding failures.
	Serialization
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Input:
		return "input"
	case Data:
		return "data"
	case Database:
		return "database"
	case Serialization:
		return "serialization"
	default:
		return "unknown"
	}
}

// Error is the engine's single error type. It always carries a Kind so
// callers can use errors.As to recover it through any number of fmt.Errorf
// %w wraps.
type Error struct {
	Kind Kind
	Context string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Context)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Context, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, context string, err error) *Error {
	return &Error{Kind: kind, Context: context, Err: err}
}

func Configf(format string, args...any) *Error {
	return &Error{Kind: Config, Context: fmt.Sprintf(format, args...)}
}

func Inputf(format string, args...any) *Error {
	return &Error{Kind: Input, Context: fmt.Sprintf(format, args...)}
}

func Dataf(format string, args...any) *Error {
	return &Error{Kind: Data, Context: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, context string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(kind, context, err)
}

// KindOf returns the Kind of err if it (or something it wraps) is an *Error,
// and false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// ExitCode maps an error to a process exit status: 0 only for nil, 1 for
// every recognized engine error kind, and 1 for anything else too.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
