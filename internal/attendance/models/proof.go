package models

import (
	"time"

	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	dErrors "pramaan/pkg/domain-errors"
)

// Location is the optional device position captured at issuance.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// AttendanceProof is the aggregate root for one attendance assertion.
//
// Invariants:
//   - the (IdentityID, Date, Type) slot is unique; at most one proof per
//     identity per day per attendance type
//   - Nullifier is globally unique and derived from the commitment, the day
//     and the type; the same slot always derives the same nullifier
//   - a proof is verified at most once; IsVerified flips false -> true
//     exactly once, together with nullifier consumption, in one storage
//     transaction
//   - ExpiresAt is fixed at issuance; verification after ExpiresAt fails
//
// Slot and nullifier uniqueness are enforced by the stores; the model owns
// the verification transition.
type AttendanceProof struct {
	ProofID        id.ProofID
	IdentityID     id.IdentityID
	OrganizationID id.OrganizationID
	Date           id.AttendanceDate
	Type           id.AttendanceType
	Payload        *proofbackend.Payload
	Nullifier      proofbackend.Nullifier
	IssuedAt       time.Time
	ExpiresAt      time.Time
	Location       *Location
	IsVerified     bool
	VerifiedAt     *time.Time
	VerifiedBy     id.AdminID
}

// NewAttendanceProof validates invariants and constructs an unverified
// proof expiring ttl after issuedAt.
func NewAttendanceProof(
	identityID id.IdentityID,
	orgID id.OrganizationID,
	date id.AttendanceDate,
	typ id.AttendanceType,
	payload *proofbackend.Payload,
	nullifier proofbackend.Nullifier,
	issuedAt time.Time,
	ttl time.Duration,
	location *Location,
) (*AttendanceProof, error) {
	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity id is required")
	}
	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization id is required")
	}
	if date.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "attendance date is required")
	}
	if !typ.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown attendance type")
	}
	if payload == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "proof payload is required")
	}
	if nullifier == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "nullifier is required")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "proof ttl must be positive")
	}

	return &AttendanceProof{
		ProofID:        id.NewProofID(),
		IdentityID:     identityID,
		OrganizationID: orgID,
		Date:           date,
		Type:           typ,
		Payload:        payload,
		Nullifier:      nullifier,
		IssuedAt:       issuedAt,
		ExpiresAt:      issuedAt.Add(ttl),
		Location:       location,
	}, nil
}

// IsExpired reports whether the proof can no longer be verified.
func (p *AttendanceProof) IsExpired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// CanVerify checks the verification transition.
func (p *AttendanceProof) CanVerify() error {
	if p.IsVerified {
		return dErrors.New(dErrors.CodeInvariantViolation, "proof is already verified")
	}
	return nil
}

// ApplyVerification transitions the proof to verified. Call CanVerify
// first to validate the transition.
func (p *AttendanceProof) ApplyVerification(adminID id.AdminID, now time.Time) {
	p.IsVerified = true
	p.VerifiedAt = &now
	p.VerifiedBy = adminID
}

// PublicInputs rebuilds the public inputs the payload was proven against.
func (p *AttendanceProof) PublicInputs(commitment proofbackend.Commitment) proofbackend.PublicInputs {
	return proofbackend.PublicInputs{
		Commitment:     commitment,
		OrganizationID: p.OrganizationID,
		Date:           p.Date,
		Type:           p.Type,
		IssuedAt:       p.IssuedAt,
	}
}

// Summary is the per-day attendance status for one identity.
type Summary struct {
	IdentityID id.IdentityID     `json:"identity_id"`
	Date       id.AttendanceDate `json:"date"`
	CheckIn    *SlotStatus       `json:"check_in,omitempty"`
	CheckOut   *SlotStatus       `json:"check_out,omitempty"`
	Complete   bool              `json:"complete"`
}

// SlotStatus is the public status of one attendance slot.
type SlotStatus struct {
	ProofID    id.ProofID `json:"proof_id"`
	IssuedAt   time.Time  `json:"issued_at"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// NewSummary folds a day's proofs into a Summary. The day counts as
// complete only when both slots hold verified proofs.
func NewSummary(identityID id.IdentityID, date id.AttendanceDate, proofs []*AttendanceProof) *Summary {
	s := &Summary{IdentityID: identityID, Date: date}
	for _, p := range proofs {
		status := &SlotStatus{
			ProofID:    p.ProofID,
			IssuedAt:   p.IssuedAt,
			Verified:   p.IsVerified,
			VerifiedAt: p.VerifiedAt,
		}
		switch p.Type {
		case id.AttendanceCheckIn:
			s.CheckIn = status
		case id.AttendanceCheckOut:
			s.CheckOut = status
		}
	}
	s.Complete = s.CheckIn != nil && s.CheckIn.Verified && s.CheckOut != nil && s.CheckOut.Verified
	return s
}
