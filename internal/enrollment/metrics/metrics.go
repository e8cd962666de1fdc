package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the enrollment module.
type Metrics struct {
	EnrollmentsCreated prometheus.Counter
	ReEnrollments      prometheus.Counter
	Revocations        prometheus.Counter
	DuplicateRejects   *prometheus.CounterVec
	EnrollDuration     prometheus.Histogram
}

// New creates a Metrics instance with all enrollment metrics registered.
func New() *Metrics {
	return &Metrics{
		EnrollmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pramaan_enrollments_created_total",
			Help: "Total number of biometric enrollments created",
		}),
		ReEnrollments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pramaan_enrollments_rotated_total",
			Help: "Total number of re-enrollments (commitment rotations)",
		}),
		Revocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pramaan_enrollments_revoked_total",
			Help: "Total number of administrative revocations",
		}),
		DuplicateRejects: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pramaan_enrollment_rejects_total",
			Help: "Enrollment attempts rejected by uniqueness checks",
		}, []string{"reason"}),
		EnrollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pramaan_enroll_duration_seconds",
			Help:    "Duration of Enroll operations including commitment binding",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementEnrollmentCreated records a successful enrollment.
func (m *Metrics) IncrementEnrollmentCreated() {
	m.EnrollmentsCreated.Inc()
}

// IncrementReEnrollment records a successful commitment rotation.
func (m *Metrics) IncrementReEnrollment() {
	m.ReEnrollments.Inc()
}

// IncrementRevocation records an administrative revocation.
func (m *Metrics) IncrementRevocation() {
	m.Revocations.Inc()
}

// IncrementDuplicateReject records an enrollment rejected by uniqueness
// checks, labeled with the stable error reason.
func (m *Metrics) IncrementDuplicateReject(reason string) {
	m.DuplicateRejects.WithLabelValues(reason).Inc()
}

// ObserveEnroll records the duration of an Enroll operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveEnroll(start time.Time) {
	m.EnrollDuration.Observe(time.Since(start).Seconds())
}
