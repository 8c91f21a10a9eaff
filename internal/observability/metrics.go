package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics bundles Prometheus collectors for selection and report runs.
type Metrics struct {
	registry         *prometheus.Registry
	Candidates       *prometheus.CounterVec
	Accepted         prometheus.Gauge
	Reports          *prometheus.CounterVec
	ReportDuration   *prometheus.HistogramVec
	PromptTokens     *prometheus.HistogramVec
	LogTruncations   *prometheus.CounterVec
	ProviderFailures *prometheus.CounterVec
}

// NewMetrics constructs a metrics registry with pipeline collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	candidates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bugreport_selection_candidates_total",
		Help: "Selection candidates by outcome (accepted, rejected_budget, skip_*)",
	}, []string{"outcome"})

	accepted := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bugreport_selection_accepted",
		Help: "Identifiers accepted by the last selection run",
	})

	reports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bugreport_reports_total",
		Help: "Report generations by backend and status",
	}, []string{"backend", "status"})

	durs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bugreport_report_duration_seconds",
		Help:    "Report generation duration in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"backend"})

	tokens := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bugreport_prompt_tokens",
		Help:    "Estimated tokens of merged documents sent to a backend",
		Buckets: prometheus.ExponentialBuckets(1000, 2, 10),
	}, []string{"backend"})

	truncations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bugreport_log_truncations_total",
		Help: "Build logs cut to the backend prompt ceiling",
	}, []string{"backend"})

	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bugreport_provider_failures_total",
		Help: "Artifact service call failures by operation",
	}, []string{"operation"})

	reg.MustRegister(candidates, accepted, reports, durs, tokens, truncations, failures)

	return &Metrics{
		registry:         reg,
		Candidates:       candidates,
		Accepted:         accepted,
		Reports:          reports,
		ReportDuration:   durs,
		PromptTokens:     tokens,
		LogTruncations:   truncations,
		ProviderFailures: failures,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCandidate counts one selection decision.
func (m *Metrics) RecordCandidate(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.Candidates.WithLabelValues(outcome).Inc()
}

// SetAccepted records the size of the shortlist.
func (m *Metrics) SetAccepted(n int) {
	if m == nil {
		return
	}
	m.Accepted.Set(float64(n))
}

// RecordReport records a finished or aborted report generation.
func (m *Metrics) RecordReport(backend, status string, duration time.Duration, promptTokens int) {
	if m == nil {
		return
	}
	if backend == "" {
		backend = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.Reports.WithLabelValues(backend, status).Inc()
	m.ReportDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if promptTokens > 0 {
		m.PromptTokens.WithLabelValues(backend).Observe(float64(promptTokens))
	}
}

// RecordTruncation counts a log cut for a backend ceiling.
func (m *Metrics) RecordTruncation(backend string) {
	if m == nil {
		return
	}
	m.LogTruncations.WithLabelValues(backend).Inc()
}

// RecordProviderFailure counts an artifact service failure.
func (m *Metrics) RecordProviderFailure(operation string) {
	if m == nil {
		return
	}
	m.ProviderFailures.WithLabelValues(operation).Inc()
}

// Push sends the registry to a Pushgateway. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if job == "" {
		job = "bugreport"
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
