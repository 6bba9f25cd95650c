package handlers

import (
	"github.com/go-logr/logr"

	"github.com/imamik/osia/internal/logging"
	"github.com/imamik/osia/internal/metrics"
)

// writeMetrics records op into --metrics-file. Failures only warn; the
// operation result stands.
func writeMetrics(opts Options, op metrics.Operation, log logr.Logger) {
	if opts.MetricsFile == "" {
		return
	}
	recorder := metrics.New()
	recorder.Observe(op)
	if err := recorder.WriteTextfile(opts.MetricsFile); err != nil {
		logging.Warn(log, "Failed to write metrics file", "path", opts.MetricsFile, "error", err.Error())
	}
}
