// Package metrics records install and clean outcomes in a private
// Prometheus registry and writes them as a node_exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "osia"

// Recorder holds the metrics of one process run.
type Recorder struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	lastState         *prometheus.GaugeVec
	lastCompletion    *prometheus.GaugeVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Cluster operations by operation, cloud and result",
			},
			[]string{"operation", "cloud", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of cluster operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(30, 2, 8), // 30s to ~1h
			},
			[]string{"operation", "cloud"},
		),
		lastState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "operation_last_state",
				Help:      "Final state of the last operation on a cluster (always 1)",
			},
			[]string{"cluster", "operation", "state"},
		),
		lastCompletion: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "operation_last_completion_timestamp_seconds",
				Help:      "Unix time the last operation on a cluster finished",
			},
			[]string{"cluster", "operation"},
		),
	}
	r.registry.MustRegister(r.operationsTotal, r.operationDuration, r.lastState, r.lastCompletion)
	return r
}

// Operation describes one finished install or clean.
type Operation struct {
	Name     string
	Cluster  string
	Cloud    string
	State    string
	Duration time.Duration
	Err      error
}

// Observe records op.
func (r *Recorder) Observe(op Operation) {
	result := "success"
	if op.Err != nil {
		result = "failure"
	}
	r.operationsTotal.WithLabelValues(op.Name, op.Cloud, result).Inc()
	r.operationDuration.WithLabelValues(op.Name, op.Cloud).Observe(op.Duration.Seconds())
	r.lastState.WithLabelValues(op.Cluster, op.Name, op.State).Set(1)
	r.lastCompletion.WithLabelValues(op.Cluster, op.Name).SetToCurrentTime()
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
