// Package commitment persists biometric commitment records. Both
// implementations enforce the active-record uniqueness invariants: one
// active commitment per (identity, modality) and one active commitment per
// (modality, lookup hash) across all organizations.
package commitment

import (
	"context"
	"fmt"
	"time"

	"pramaan/internal/enrollment/models"
	id "pramaan/pkg/domain"
	"pramaan/pkg/platform/sentinel"
)

// Uniqueness outcomes from CreateIfUnique. Both wrap infra sentinels so
// services can translate them without importing store internals.
var (
	// ErrIdentityEnrolled reports an existing active commitment for the
	// same (identity, modality).
	ErrIdentityEnrolled = fmt.Errorf("identity already has an active commitment for this modality: %w", sentinel.ErrConflict)
	// ErrBiometricTaken reports an existing active commitment with the
	// same (modality, lookup hash), possibly under another organization.
	ErrBiometricTaken = fmt.Errorf("biometric is already enrolled: %w", sentinel.ErrAlreadyUsed)
)

// Store is the persistence contract for biometric commitments.
type Store interface {
	// CreateIfUnique inserts the record only if both active-record
	// uniqueness invariants hold, atomically with respect to concurrent
	// creations. Returns ErrIdentityEnrolled or ErrBiometricTaken on
	// violation.
	CreateIfUnique(ctx context.Context, c *models.BiometricCommitment) error

	// FindActive returns the active commitment for (identity, modality),
	// or sentinel.ErrNotFound.
	FindActive(ctx context.Context, identityID id.IdentityID, modality id.Modality) (*models.BiometricCommitment, error)

	// FindActiveByIdentity returns all active commitments for an identity
	// across modalities. An enrolled identity has at least one.
	FindActiveByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.BiometricCommitment, error)

	// DeactivateActive atomically deactivates the active commitment for
	// (identity, modality) and returns the deactivated record, or
	// sentinel.ErrNotFound when none is active.
	DeactivateActive(ctx context.Context, identityID id.IdentityID, modality id.Modality, reason string, now time.Time) (*models.BiometricCommitment, error)
}
