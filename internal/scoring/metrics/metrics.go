package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scoring module.
type Metrics struct {
	// Judgements recorded by rating
	JudgementsRecorded *prometheus.CounterVec

	// Rejected submissions: duplicate, no_such_assignment, invalid
	JudgementsRejected *prometheus.CounterVec

	// Assignments cancelled by item withdrawal
	AssignmentsCancelled prometheus.Counter

	// Progress cache hits and misses
	ProgressCache *prometheus.CounterVec
}

// New creates a Metrics instance with all scoring metrics registered.
func New() *Metrics {
	return &Metrics{
		JudgementsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_judgements_recorded_total",
			Help: "Total judgements recorded, by rating",
		}, []string{"rating"}),

		JudgementsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_judgements_rejected_total",
			Help: "Total rejected judgement submissions by reason",
		}, []string{"reason"}),

		AssignmentsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorum_assignments_cancelled_total",
			Help: "Total assignments cancelled by item withdrawal",
		}),

		ProgressCache: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quorum_progress_cache_total",
			Help: "Progress cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss"
	}
}

// IncrementJudgementsRecorded records an accepted judgement.
func (m *Metrics) IncrementJudgementsRecorded(rating string) {
	if m != nil {
		m.JudgementsRecorded.WithLabelValues(rating).Inc()
	}
}

// IncrementJudgementsRejected records a rejected submission.
func (m *Metrics) IncrementJudgementsRejected(reason string) {
	if m != nil {
		m.JudgementsRejected.WithLabelValues(reason).Inc()
	}
}

// AddAssignmentsCancelled records assignments cancelled by a withdrawal.
func (m *Metrics) AddAssignmentsCancelled(n int) {
	if m != nil {
		m.AssignmentsCancelled.Add(float64(n))
	}
}

// IncrementProgressCache records a cache lookup result.
func (m *Metrics) IncrementProgressCache(result string) {
	if m != nil {
		m.ProgressCache.WithLabelValues(result).Inc()
	}
}
