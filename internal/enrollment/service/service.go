// Package service orchestrates the biometric enrollment lifecycle: initial
// enrollment, re-enrollment (commitment rotation) and administrative
// revocation. Raw samples never leave this layer; only commitments and
// lookup hashes are persisted.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pramaan/internal/audit"
	enrollmetrics "pramaan/internal/enrollment/metrics"
	"pramaan/internal/enrollment/models"
	"pramaan/internal/enrollment/store/commitment"
	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	dErrors "pramaan/pkg/domain-errors"
	"pramaan/pkg/platform/sentinel"
	"pramaan/pkg/platform/tx"
	"pramaan/pkg/requestcontext"
)

// Stable error reasons surfaced to clients. Handlers map them to response
// bodies; metrics label rejects with them.
const (
	ReasonInvalidSample      = "invalid_sample"
	ReasonAlreadyEnrolled    = "already_enrolled"
	ReasonDuplicateBiometric = "duplicate_biometric"
	ReasonNotEnrolled        = "not_enrolled"
)

// AuditPublisher records enrollment lifecycle events. Emit failures abort
// the surrounding operation.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates enrollment operations.
type Service struct {
	commitments commitment.Store
	backend     proofbackend.Backend
	audit       AuditPublisher
	metrics     *enrollmetrics.Metrics
	tx          tx.Runner
	logger      *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithMetrics(m *enrollmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

// New constructs a Service. Without WithTxRunner the service runs store
// calls directly, which is correct for the memory store.
func New(commitments commitment.Store, backend proofbackend.Backend, opts ...Option) *Service {
	s := &Service{
		commitments: commitments,
		backend:     backend,
		tx:          tx.Passthrough{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enroll binds a raw sample to a fresh salt and stores the resulting
// commitment. The raw sample is discarded after binding.
//
// Errors:
//   - invalid_sample when the sample is empty or unbindable
//   - already_enrolled when the identity has an active commitment for the
//     modality
//   - duplicate_biometric when the same biometric is already enrolled,
//     under any identity in any organization
func (s *Service) Enroll(ctx context.Context, identityID id.IdentityID, orgID id.OrganizationID, modality id.Modality, sample proofbackend.Sample) (*models.CommitmentHandle, error) {
	start := time.Now()
	if err := requireIdentity(identityID); err != nil {
		return nil, err
	}
	if err := requireOrganization(orgID); err != nil {
		return nil, err
	}
	if !modality.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown modality")
	}
	if len(sample) == 0 {
		return nil, dErrors.NewWithReason(dErrors.CodeValidation, ReasonInvalidSample, "biometric sample is required")
	}

	salt, err := proofbackend.NewSalt()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate salt")
	}
	bound, err := s.backend.Bind(sample, salt)
	if err != nil {
		return nil, dErrors.NewWithReason(dErrors.CodeValidation, ReasonInvalidSample, "biometric sample could not be processed")
	}

	now := requestcontext.Now(ctx)
	record, err := models.NewBiometricCommitment(identityID, orgID, modality, bound, salt, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.commitments.CreateIfUnique(txCtx, record); err != nil {
			return s.translateCreateErr(err)
		}
		return s.emit(txCtx, audit.Event{
			Action:         audit.ActionEnrollmentCreated,
			IdentityID:     identityID,
			OrganizationID: orgID,
			Subject:        modality.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementEnrollmentCreated()
		s.metrics.ObserveEnroll(start)
	}
	s.logger.InfoContext(ctx, "enrollment created",
		"identity_id", identityID,
		"modality", modality,
	)
	return record.Handle(), nil
}

// ReEnroll rotates the active commitment for a modality: the prior record
// is deactivated and a fresh commitment written in the same transaction, so
// the identity is never left without an active commitment on failure.
func (s *Service) ReEnroll(ctx context.Context, identityID id.IdentityID, orgID id.OrganizationID, modality id.Modality, sample proofbackend.Sample) (*models.CommitmentHandle, error) {
	if err := requireIdentity(identityID); err != nil {
		return nil, err
	}
	if err := requireOrganization(orgID); err != nil {
		return nil, err
	}
	if !modality.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown modality")
	}
	if len(sample) == 0 {
		return nil, dErrors.NewWithReason(dErrors.CodeValidation, ReasonInvalidSample, "biometric sample is required")
	}

	salt, err := proofbackend.NewSalt()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate salt")
	}
	bound, err := s.backend.Bind(sample, salt)
	if err != nil {
		return nil, dErrors.NewWithReason(dErrors.CodeValidation, ReasonInvalidSample, "biometric sample could not be processed")
	}

	now := requestcontext.Now(ctx)
	record, err := models.NewBiometricCommitment(identityID, orgID, modality, bound, salt, now)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.commitments.DeactivateActive(txCtx, identityID, modality, "re-enrollment", now); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.NewWithReason(dErrors.CodeNotFound, ReasonNotEnrolled, "no active enrollment for this modality")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to rotate commitment")
		}
		if err := s.commitments.CreateIfUnique(txCtx, record); err != nil {
			return s.translateCreateErr(err)
		}
		return s.emit(txCtx, audit.Event{
			Action:         audit.ActionCommitmentReenrolled,
			IdentityID:     identityID,
			OrganizationID: orgID,
			Subject:        modality.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementReEnrollment()
	}
	s.logger.InfoContext(ctx, "commitment rotated",
		"identity_id", identityID,
		"modality", modality,
	)
	return record.Handle(), nil
}

// Revoke deactivates the active commitment for a modality. The record stays
// in history with the revocation reason; issuing proofs for the modality
// fails until the identity re-enrolls.
func (s *Service) Revoke(ctx context.Context, identityID id.IdentityID, modality id.Modality, reason string) error {
	if err := requireIdentity(identityID); err != nil {
		return err
	}
	if !modality.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown modality")
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeBadRequest, "revocation reason is required")
	}

	now := requestcontext.Now(ctx)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		revoked, err := s.commitments.DeactivateActive(txCtx, identityID, modality, reason, now)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.NewWithReason(dErrors.CodeNotFound, ReasonNotEnrolled, "no active enrollment for this modality")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke commitment")
		}
		return s.emit(txCtx, audit.Event{
			Action:         audit.ActionCommitmentRevoked,
			IdentityID:     identityID,
			OrganizationID: revoked.OrganizationID,
			Subject:        modality.String(),
			Reason:         reason,
		})
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementRevocation()
	}
	s.logger.InfoContext(ctx, "commitment revoked",
		"identity_id", identityID,
		"modality", modality,
		"reason", reason,
	)
	return nil
}

// Status returns the non-secret handles for all active enrollments of an
// identity.
func (s *Service) Status(ctx context.Context, identityID id.IdentityID) ([]*models.CommitmentHandle, error) {
	if err := requireIdentity(identityID); err != nil {
		return nil, err
	}
	records, err := s.commitments.FindActiveByIdentity(ctx, identityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load enrollments")
	}
	handles := make([]*models.CommitmentHandle, 0, len(records))
	for _, r := range records {
		handles = append(handles, r.Handle())
	}
	return handles, nil
}

func (s *Service) translateCreateErr(err error) error {
	switch {
	case errors.Is(err, commitment.ErrIdentityEnrolled):
		if s.metrics != nil {
			s.metrics.IncrementDuplicateReject(ReasonAlreadyEnrolled)
		}
		return dErrors.NewWithReason(dErrors.CodeConflict, ReasonAlreadyEnrolled, "identity already has an active enrollment for this modality")
	case errors.Is(err, commitment.ErrBiometricTaken):
		if s.metrics != nil {
			s.metrics.IncrementDuplicateReject(ReasonDuplicateBiometric)
		}
		return dErrors.NewWithReason(dErrors.CodeConflict, ReasonDuplicateBiometric, "biometric is already enrolled")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store commitment")
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit trail unavailable")
	}
	return nil
}

func requireIdentity(identityID id.IdentityID) error {
	if identityID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "identity id is required")
	}
	return nil
}

func requireOrganization(orgID id.OrganizationID) error {
	if orgID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}
	return nil
}
