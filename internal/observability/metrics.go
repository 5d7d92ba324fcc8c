package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "makecv"

// Metrics holds the counters for one process. Each Metrics has its own
// registry, so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// Candidates counts candidates by source and outcome (accepted,
	// rejected, duplicate, out_of_window, undated, failed, discarded).
	Candidates *prometheus.CounterVec

	// SourceRequests counts HTTP requests by source and outcome (a status
	// code, network_error or cache_hit).
	SourceRequests *prometheus.CounterVec

	// SourceFailures counts sources that could not be opened or stopped
	// early.
	SourceFailures *prometheus.CounterVec

	// RunDuration observes the wall time of a whole run in seconds.
	RunDuration prometheus.Histogram
}

// NewMetrics creates and registers the metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Candidates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "candidates_total",
			Help:      "Candidates processed, by source and outcome",
		}, []string{"source", "outcome"}),
		SourceRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "source_requests_total",
			Help:      "HTTP requests to bibliographic APIs, by source and outcome",
		}, []string{"source", "outcome"}),
		SourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "source_failures_total",
			Help:      "Sources that failed to open or ended early",
		}, []string{"source"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of harvest runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCandidate counts one candidate outcome.
func (m *Metrics) RecordCandidate(source, outcome string) {
	m.Candidates.WithLabelValues(source, outcome).Inc()
}

// RecordSourceFailure counts a source that failed.
func (m *Metrics) RecordSourceFailure(source string) {
	m.SourceFailures.WithLabelValues(source).Inc()
}

// ObserveRequest implements sources.RequestRecorder.
func (m *Metrics) ObserveRequest(source, outcome string) {
	m.SourceRequests.WithLabelValues(source, outcome).Inc()
}

// ObserveRun records the duration of a run.
func (m *Metrics) ObserveRun(seconds float64) {
	m.RunDuration.Observe(seconds)
}

// WriteToTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
