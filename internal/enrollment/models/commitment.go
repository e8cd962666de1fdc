package models

import (
	"time"

	"github.com/google/uuid"

	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	dErrors "pramaan/pkg/domain-errors"
)

// BiometricCommitment is the aggregate root for one enrolled biometric.
//
// Invariants:
//   - IdentityID, OrganizationID, Modality, Commitment and Salt are set at
//     construction and immutable afterwards
//   - LookupHash is derived from Commitment and never stored raw
//   - at most one active record per (IdentityID, Modality)
//   - at most one active record per (Modality, LookupHash) across all
//     organizations
//   - records are deactivated, never deleted; DeactivatedAt and
//     DeactivationReason are set exactly once
//
// The uniqueness invariants are enforced by the stores (partial unique
// indexes in Postgres, mutex-guarded checks in memory); the model only
// owns the lifecycle transition.
type BiometricCommitment struct {
	ID                 uuid.UUID
	IdentityID         id.IdentityID
	OrganizationID     id.OrganizationID
	Modality           id.Modality
	Commitment         proofbackend.Commitment
	LookupHash         string
	Salt               proofbackend.Salt
	IsActive           bool
	EnrolledAt         time.Time
	DeactivatedAt      *time.Time
	DeactivationReason string
}

// NewBiometricCommitment validates invariants and constructs an active
// commitment record. LookupHash is derived here so callers cannot supply
// an inconsistent one.
func NewBiometricCommitment(
	identityID id.IdentityID,
	orgID id.OrganizationID,
	modality id.Modality,
	commitment proofbackend.Commitment,
	salt proofbackend.Salt,
	now time.Time,
) (*BiometricCommitment, error) {
	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity id is required")
	}
	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization id is required")
	}
	if !modality.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown modality")
	}
	if commitment == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "commitment is required")
	}
	if salt == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "salt is required")
	}

	return &BiometricCommitment{
		ID:             uuid.New(),
		IdentityID:     identityID,
		OrganizationID: orgID,
		Modality:       modality,
		Commitment:     commitment,
		LookupHash:     proofbackend.LookupHash(commitment),
		Salt:           salt,
		IsActive:       true,
		EnrolledAt:     now,
	}, nil
}

// CanDeactivate checks whether the record can transition to inactive.
func (c *BiometricCommitment) CanDeactivate() error {
	if !c.IsActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "commitment is already inactive")
	}
	return nil
}

// ApplyDeactivation transitions the record to inactive. Call CanDeactivate
// first to validate the transition.
func (c *BiometricCommitment) ApplyDeactivation(reason string, now time.Time) {
	c.IsActive = false
	c.DeactivatedAt = &now
	c.DeactivationReason = reason
}

// Deactivate validates and applies deactivation in one call.
func (c *BiometricCommitment) Deactivate(reason string, now time.Time) error {
	if err := c.CanDeactivate(); err != nil {
		return err
	}
	c.ApplyDeactivation(reason, now)
	return nil
}

// CommitmentHandle is the non-secret projection returned to callers after
// enrollment. It never carries the commitment, lookup hash or salt.
type CommitmentHandle struct {
	ID         uuid.UUID     `json:"id"`
	IdentityID id.IdentityID `json:"identity_id"`
	Modality   id.Modality   `json:"modality"`
	EnrolledAt time.Time     `json:"enrolled_at"`
}

// Handle projects the commitment into its public form.
func (c *BiometricCommitment) Handle() *CommitmentHandle {
	return &CommitmentHandle{
		ID:         c.ID,
		IdentityID: c.IdentityID,
		Modality:   c.Modality,
		EnrolledAt: c.EnrolledAt,
	}
}
