package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/codebook/codebook"
)

const metricsNamespace = "codebook"

// Metrics records validation outcomes.
type Metrics struct {
	validations *prometheus.CounterVec
	duration    prometheus.Histogram
	lintIssues  *prometheus.CounterVec
}

// NewMetrics creates the service metrics and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "validations_total",
			Help:      "Codebook validation requests by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "validation_duration_seconds",
			Help:      "Time spent validating one codebook document.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		lintIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lint_issues_total",
			Help:      "Lint issues reported by severity.",
		}, []string{"severity"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.validations, m.duration, m.lintIssues} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(report *codebook.Report, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "invalid"
	if report.Valid {
		result = "valid"
	}
	m.validations.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
	for severity, n := range codebook.CountBySeverity(report.Issues) {
		m.lintIssues.WithLabelValues(string(severity)).Add(float64(n))
	}
}
