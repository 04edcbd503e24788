// Package logging builds the slog logger used for operational events.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Options controls the logger.
type Options struct {
	// Writer defaults to os.Stderr.
	Writer  io.Writer
	Verbose bool
	Quiet   bool
	NoColor bool
}

// Level maps the verbosity flags to a slog level. Quiet wins over Verbose.
func Level(verbose, quiet bool) slog.Level {
	switch {
	case quiet:
		return slog.LevelWarn
	case verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// New returns a tint-backed logger. Color is used only when the writer is a
// terminal and NoColor is unset.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      Level(opts.Verbose, opts.Quiet),
		TimeFormat: time.TimeOnly,
		NoColor:    opts.NoColor || !isTerminal(w),
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
