// Package syncerr classifies the failures a synchronization run can produce.
//
// Every package wraps its errors in *Error (or wraps an *Error with %w) so
// that the executor and the CLI can decide between retrying, recording the
// failure, and aborting the whole run.
package syncerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the category of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindAuth
	KindTransient
	KindValidation
	KindIO
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuth:
		return "auth"
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindIO:
		return "io"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Retryable reports whether an action failing with this kind may be retried.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// Fatal reports whether this kind aborts the whole invocation.
func (k Kind) Fatal() bool {
	return k == KindConfiguration || k == KindAuth
}

// Error is a classified failure of a single operation.
type Error struct {
	Kind Kind
	Op   string // "scan", "upload", "list", ...
	Key  string // remote key or local path, if any
	Err  error
	Hint string
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Key != "" {
		msg += " " + e.Key
	}
	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Configf returns a configuration error with a formatted message.
func Configf(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Op: "config", Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
// Context cancellation is reported as KindCancelled even when unwrapped.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindUnknown
}

// IsRetryable reports whether err is a transient failure.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}
