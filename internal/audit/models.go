package audit

import (
	"time"

	id "pramaan/pkg/domain"
)

// Actions recorded by the enrollment and attendance services. The audit
// trail is append-only and every entry carries one of these.
const (
	ActionEnrollmentCreated    = "enrollment_created"
	ActionCommitmentReenrolled = "commitment_reenrolled"
	ActionCommitmentRevoked    = "commitment_revoked"
	ActionProofIssued          = "proof_issued"
	ActionProofVerified        = "proof_verified"
	ActionVerificationFailed   = "verification_failed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp      time.Time
	Action         string
	IdentityID     id.IdentityID
	OrganizationID id.OrganizationID
	Subject        string
	Decision       string
	Reason         string
	RequestID      string
	ActorID        string
}
