package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeUnavailable = "unavailable"
)

// Metrics holds the collectors for the media pipeline and engagement toggles.
type Metrics struct {
	ProviderAttempts *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	LikeToggles      *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg gives unregistered collectors,
// which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProviderAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poemverse",
			Name:      "provider_attempts_total",
			Help:      "Generation and storage backend attempts by outcome.",
		}, []string{"capability", "provider", "outcome"}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "poemverse",
			Name:      "provider_call_seconds",
			Help:      "Latency of generation and storage backend calls.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"capability", "provider"}),
		LikeToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poemverse",
			Name:      "like_toggles_total",
			Help:      "Like toggles by resulting state.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.ProviderAttempts, m.ProviderLatency, m.LikeToggles)
	}
	return m
}

// Observe records one backend attempt. Safe on a nil receiver.
func (m *Metrics) Observe(capability, provider, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.ProviderAttempts.WithLabelValues(capability, provider, outcome).Inc()
	if outcome != OutcomeUnavailable {
		m.ProviderLatency.WithLabelValues(capability, provider).Observe(seconds)
	}
}

func (m *Metrics) Toggle(liked bool) {
	if m == nil {
		return
	}
	result := "unliked"
	if liked {
		result = "liked"
	}
	m.LikeToggles.WithLabelValues(result).Inc()
}
