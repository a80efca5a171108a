// Package metrics provides Prometheus instrumentation for generation runs.
//
// Counters are package-level and incremented from the generation loop; none
// of them consume randomness, so instrumentation never affects determinism.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransactionsTotal counts generated transactions by final status.
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudgen",
			Name:      "transactions_total",
			Help:      "Total generated transactions by status.",
		},
		[]string{"status"},
	)

	// FraudLabelsTotal counts fraud-labeled transactions by reported reason.
	FraudLabelsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudgen",
			Name:      "fraud_labels_total",
			Help:      "Total fraud-labeled transactions by reported reason.",
		},
		[]string{"reason"},
	)

	// BatchesEmittedTotal counts batches handed to the sink.
	BatchesEmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fraudgen",
			Name:      "batches_emitted_total",
			Help:      "Total batches handed to the sink.",
		},
	)

	// RowsWrittenTotal counts rows written by the sink, per table.
	RowsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudgen",
			Name:      "rows_written_total",
			Help:      "Total rows written by the sink, per table.",
		},
		[]string{"table"},
	)

	// SimulatedClock tracks the generator's simulated time as a unix
	// timestamp.
	SimulatedClock = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fraudgen",
			Name:      "simulated_clock_seconds",
			Help:      "Current simulated time of the stream generator (unix seconds).",
		},
	)

	// SinkWriteDuration observes sink batch-write latency.
	SinkWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fraudgen",
			Name:      "sink_write_duration_seconds",
			Help:      "Sink batch write duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
	)
)

// Register registers all generator metrics with the default registry.
// Call once at startup.
func Register() {
	prometheus.MustRegister(
		TransactionsTotal,
		FraudLabelsTotal,
		BatchesEmittedTotal,
		RowsWrittenTotal,
		SimulatedClock,
		SinkWriteDuration,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
