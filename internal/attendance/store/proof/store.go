// Package proof persists attendance proofs. The stores own the two hard
// uniqueness invariants, one proof per (identity, date, type) slot and one
// proof per nullifier, and the atomic verification transition.
package proof

import (
	"context"
	"fmt"
	"time"

	"pramaan/internal/attendance/models"
	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	"pramaan/pkg/platform/sentinel"
)

// Uniqueness and transition outcomes. All wrap infra sentinels so services
// translate them into the client-facing taxonomy.
var (
	// ErrSlotTaken reports an existing proof for the same
	// (identity, date, type) slot.
	ErrSlotTaken = fmt.Errorf("attendance slot already has a proof: %w", sentinel.ErrConflict)
	// ErrNullifierTaken reports an existing proof carrying the same
	// nullifier.
	ErrNullifierTaken = fmt.Errorf("nullifier already bound to a proof: %w", sentinel.ErrAlreadyUsed)
	// ErrAlreadyVerified reports a verification transition on a proof that
	// was already verified.
	ErrAlreadyVerified = fmt.Errorf("proof is already verified: %w", sentinel.ErrInvalidState)
)

// Store is the persistence contract for attendance proofs.
type Store interface {
	// CreateIfSlotFree inserts the proof only if its slot and nullifier
	// are unused, atomically with respect to concurrent issuance. Returns
	// ErrSlotTaken or ErrNullifierTaken on violation.
	CreateIfSlotFree(ctx context.Context, p *models.AttendanceProof) error

	// FindByID returns a proof, or sentinel.ErrNotFound.
	FindByID(ctx context.Context, proofID id.ProofID) (*models.AttendanceProof, error)

	// HasVerifiedCheckIn reports whether the identity holds a verified
	// checkIn proof for the date.
	HasVerifiedCheckIn(ctx context.Context, identityID id.IdentityID, date id.AttendanceDate) (bool, error)

	// FindByIdentityAndDate returns all proofs for the identity on the
	// date, in issuance order.
	FindByIdentityAndDate(ctx context.Context, identityID id.IdentityID, date id.AttendanceDate) ([]*models.AttendanceProof, error)

	// MarkVerified atomically flips is_verified false -> true and returns
	// the updated proof. Returns sentinel.ErrNotFound for an unknown
	// proof and ErrAlreadyVerified when the flag was already set; at most
	// one concurrent caller succeeds.
	MarkVerified(ctx context.Context, proofID id.ProofID, adminID id.AdminID, now time.Time) (*models.AttendanceProof, error)
}

// ConsumedNullifierStore records consumed nullifiers. Consumption must be
// exactly-once: the second Consume of a nullifier fails.
type ConsumedNullifierStore interface {
	// Consume records the nullifier, or returns sentinel.ErrAlreadyUsed
	// when it was consumed before.
	Consume(ctx context.Context, nullifier proofbackend.Nullifier, proofID id.ProofID, now time.Time) error
}
