// internal/blockchain/solbc/transaction/metrics.go
package transaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	outcomes          *prometheus.CounterVec
	fallbacks         prometheus.Counter
	durationHistogram prometheus.Histogram
}

// NewMetrics создает метрики конвейера. При nil reg метрики не регистрируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "middleware_submission_outcomes_total",
		Help: "Submissions by method and terminal outcome",
	}, []string{"method", "outcome"})
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "middleware_submission_fallbacks_total",
		Help: "Submissions sent without preflight after simulation infrastructure failure",
	})
	durationHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "middleware_submission_duration_seconds",
		Help:    "Submission duration from build to terminal state",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	if reg != nil {
		reg.MustRegister(outcomes, fallbacks, durationHistogram)
	}

	return &Metrics{
		outcomes:          outcomes,
		fallbacks:         fallbacks,
		durationHistogram: durationHistogram,
	}
}

func (m *Metrics) TrackSubmission(start time.Time) {
	m.durationHistogram.Observe(time.Since(start).Seconds())
}

func (m *Metrics) Outcome(method, outcome string) {
	m.outcomes.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) Fallback() {
	m.fallbacks.Inc()
}
