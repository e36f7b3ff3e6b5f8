// Package logging provides the structured logger used across the extraction
// core. The teacher CLI prints straight to stdout/stderr with fmt.Printf;
// that does not hold up once the Download Pool is running several workers
// concurrently, so the core adopts zerolog (as tomtom215-cartographus does
// for its own services) and keeps fmt-based output only in the retained
// human-readable CLI path under cmd/.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Configure installs the process-wide logger. Safe to call once at startup;
// subsequent calls are no-ops so tests and library embedders don't fight
// over global state.
func Configure(w io.Writer, verbose bool) {
	once.Do(func() {
		if w == nil {
			w = os.Stderr
		}
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(w).With().Timestamp().Logger().Level(level)
	})
}

// L returns the process-wide logger, configuring a sane default (stderr,
// info level) if Configure was never called.
func L() *zerolog.Logger {
	Configure(os.Stderr, false)
	return &logger
}

// ForRun returns a child logger annotated with a run identifier, so log
// lines from concurrent identifiers (or concurrent download-pool workers
// within one identifier) can be told apart without a global ordering
// guarantee -- spec.md §5 explicitly does not require one.
func ForRun(runID string) zerolog.Logger {
	return L().With().Str("run_id", runID).Logger()
}
