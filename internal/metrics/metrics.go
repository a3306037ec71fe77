// Package metrics exposes scan counters for Prometheus scraping.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Probe outcomes.
const (
	OutcomeMatched      = "matched"
	OutcomeUnmatched    = "unmatched"
	OutcomeInconclusive = "inconclusive"
)

// OutcomeOf classifies a request spec result. A nil finding is inconclusive.
func OutcomeOf(f *scan.Finding) string {
	switch {
	case f == nil:
		return OutcomeInconclusive
	case f.Matched:
		return OutcomeMatched
	default:
		return OutcomeUnmatched
	}
}

// Recorder holds scan metrics in a private registry. A nil *Recorder is a
// valid no-op recorder.
type Recorder struct {
	registry *prometheus.Registry

	probesTotal   *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
}

// NewRecorder creates and registers all scan metrics.
func NewRecorder() (*Recorder, error) {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seca_scan_probes_total",
			Help: "Total number of request specs executed, by protocol and outcome",
		},
		[]string{"protocol", "outcome"},
	)

	r.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seca_scan_findings_total",
			Help: "Total number of matched findings, by severity",
		},
		[]string{"severity"},
	)

	r.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seca_scan_probe_duration_seconds",
			Help:    "Request spec execution time in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"protocol"},
	)

	for _, c := range []prometheus.Collector{r.probesTotal, r.findingsTotal, r.probeDuration} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}

	return r, nil
}

// ObserveProbe records one executed request spec.
func (r *Recorder) ObserveProbe(protocol, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.probesTotal.WithLabelValues(protocol, outcome).Inc()
	r.probeDuration.WithLabelValues(protocol).Observe(d.Seconds())
}

// ObserveFinding records a matched finding.
func (r *Recorder) ObserveFinding(severity string) {
	if r == nil {
		return
	}
	if severity == "" {
		severity = "unknown"
	}
	r.findingsTotal.WithLabelValues(severity).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
