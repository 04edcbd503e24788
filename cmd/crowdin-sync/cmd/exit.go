package cmd

import (
	"errors"

	"github.com/bianoble/crowdin-sync/internal/engine"
	"github.com/bianoble/crowdin-sync/internal/syncerr"
)

// Process exit codes.
const (
	ExitOK        = 0
	ExitFailures  = 1   // the run completed with failed actions, or check found drift
	ExitFatal     = 2   // configuration, auth or I/O error before any action ran
	ExitCancelled = 130 // interrupted or timed out
)

// ExitError is returned by commands that ran to completion but must exit
// non-zero.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	return e.Msg
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	if syncerr.KindOf(err) == syncerr.KindCancelled {
		return ExitCancelled
	}
	return ExitFatal
}

// reportCode classifies a finished run. An auth failure mid-run stops
// dispatch, so it outranks the cancellations it causes.
func reportCode(r *engine.Report, ledgerErr error) int {
	for _, f := range r.Failed {
		if f.Kind == syncerr.KindAuth {
			return ExitFatal
		}
	}
	switch {
	case r.Cancelled():
		return ExitCancelled
	case len(r.Failed) > 0, ledgerErr != nil:
		return ExitFailures
	}
	return ExitOK
}
