// Package logging builds the logr.Logger used across osia.
//
// Output is line oriented key/value text produced by funcr, written to the
// given writer (stderr for the CLI). Verbose mode enables V(1) messages.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// DebugLevel is the verbosity used for debug messages.
const DebugLevel = 1

// New returns a logger writing to w. When verbose is true, V(DebugLevel)
// messages are emitted as well.
func New(w io.Writer, verbose bool) logr.Logger {
	verbosity := 0
	if verbose {
		verbosity = DebugLevel
	}
	return funcr.New(func(prefix, args string) {
		ts := time.Now().Format("2006-01-02 15:04:05")
		if prefix != "" {
			_, _ = fmt.Fprintf(w, "%s %s: %s\n", ts, prefix, args)
			return
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", ts, args)
	}, funcr.Options{
		Verbosity: verbosity,
		LogCaller: funcr.None,
	})
}

// Warn logs a non-fatal condition. logr has no warning level, so warnings
// are info messages tagged with severity=warning.
func Warn(log logr.Logger, msg string, keysAndValues ...any) {
	log.Info(msg, append([]any{"severity", "warning"}, keysAndValues...)...)
}
