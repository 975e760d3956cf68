package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the campaign module.
type Metrics struct {
	// Campaigns created, labelled by plan coverage
	CampaignsCreated *prometheus.CounterVec

	// Registration outcomes: claimed, rejoined, capacity_exceeded, expired
	Registrations *prometheus.CounterVec

	// Latency of the atomic claim transaction
	ClaimLatency prometheus.Histogram
}

// New creates a Metrics instance with all campaign metrics registered.
func New() *Metrics {
	return &Metrics{
		CampaignsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_campaigns_created_total",
			Help: "Total campaigns created, by plan coverage",
		}, []string{"coverage"}), // coverage: "complete", "partial"

		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_registrations_total",
			Help: "Total registration attempts by outcome",
		}, []string{"outcome"}),

		ClaimLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "quorum_claim_duration_seconds",
			Help:    "Duration of the bucket claim transaction",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCampaignsCreated records a created campaign.
func (m *Metrics) IncrementCampaignsCreated(coverageComplete bool) {
	if m != nil {
		coverage := "complete"
		if !coverageComplete {
			coverage = "partial"
		}
		m.CampaignsCreated.WithLabelValues(coverage).Inc()
	}
}

// IncrementRegistration records a registration attempt outcome.
func (m *Metrics) IncrementRegistration(outcome string) {
	if m != nil {
		m.Registrations.WithLabelValues(outcome).Inc()
	}
}

// ObserveClaimLatency records the duration of one claim transaction.
func (m *Metrics) ObserveClaimLatency(d time.Duration) {
	if m != nil {
		m.ClaimLatency.Observe(d.Seconds())
	}
}
