// Package harnesslog centralizes structured logging for the harness on top
// of github.com/oarkflow/log, the zerolog-styled logger already pulled in by
// the module's dependency tree. No package outside this one should import a
// logging library directly.
package harnesslog

import (
	"os"
	"sync"

	"github.com/oarkflow/log"
)

// Logger is the shared logger type, re-exported so callers never need to
// import github.com/oarkflow/log themselves just to name a field type.
type Logger = log.Logger

var (
	once sync.Once
	base log.Logger
)

// Logger returns the process-wide structured logger, console-writing with
// timestamps, initialized lazily on first use.
func Logger() *log.Logger {
	once.Do(func() {
		base = log.Logger{
			Level:     log.DebugLevel,
			TimeField: "ts",
		}
	})
	return &base
}

// WithRun returns a child logger tagged with the run's identity, used for
// every log line emitted while processing a single Run Bundle.
func WithRun(runID, sourceDialect, targetDialect string) log.Logger {
	return Logger().With().
		Str("run_id", runID).
		Str("dialect_pair", sourceDialect+"->"+targetDialect).
		Logger()
}

// Fatal logs at fatal level and terminates the process, matching the
// teacher CLI's log.Fatalf usage for unrecoverable configuration errors.
func Fatal(msg string, err error) {
	Logger().Fatal().Err(err).Msg(msg)
	os.Exit(1)
}
