package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the attendance module.
type Metrics struct {
	ProofsIssued         *prometheus.CounterVec
	ProofsVerified       prometheus.Counter
	IssueRejects         *prometheus.CounterVec
	VerificationFailures *prometheus.CounterVec
	IssueDuration        prometheus.Histogram
	VerifyDuration       prometheus.Histogram
}

// New creates a Metrics instance with all attendance metrics registered.
func New() *Metrics {
	return &Metrics{
		ProofsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pramaan_proofs_issued_total",
			Help: "Total number of attendance proofs issued",
		}, []string{"type"}),
		ProofsVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pramaan_proofs_verified_total",
			Help: "Total number of attendance proofs verified",
		}),
		IssueRejects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pramaan_proof_issue_rejects_total",
			Help: "Proof issuance attempts rejected, labeled by stable reason",
		}, []string{"reason"}),
		VerificationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pramaan_verification_failures_total",
			Help: "Verification attempts that failed, labeled by stable reason",
		}, []string{"reason"}),
		IssueDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pramaan_proof_issue_duration_seconds",
			Help:    "Duration of Issue operations including proof generation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		VerifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pramaan_proof_verify_duration_seconds",
			Help:    "Duration of Verify operations including the commit transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementIssued records a successfully issued proof.
func (m *Metrics) IncrementIssued(attendanceType string) {
	m.ProofsIssued.WithLabelValues(attendanceType).Inc()
}

// IncrementVerified records a successful verification.
func (m *Metrics) IncrementVerified() {
	m.ProofsVerified.Inc()
}

// IncrementIssueReject records a rejected issuance.
func (m *Metrics) IncrementIssueReject(reason string) {
	m.IssueRejects.WithLabelValues(reason).Inc()
}

// IncrementVerificationFailure records a failed verification.
func (m *Metrics) IncrementVerificationFailure(reason string) {
	m.VerificationFailures.WithLabelValues(reason).Inc()
}

// ObserveIssue records the duration of an Issue operation.
func (m *Metrics) ObserveIssue(start time.Time) {
	m.IssueDuration.Observe(time.Since(start).Seconds())
}

// ObserveVerify records the duration of a Verify operation.
func (m *Metrics) ObserveVerify(start time.Time) {
	m.VerifyDuration.Observe(time.Since(start).Seconds())
}
