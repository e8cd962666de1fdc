// Package service implements attendance proof issuance and verification.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pramaan/internal/attendance/metrics"
	"pramaan/internal/attendance/models"
	"pramaan/internal/attendance/store/proof"
	"pramaan/internal/audit"
	enrollmodels "pramaan/internal/enrollment/models"
	"pramaan/internal/proofbackend"
	"pramaan/internal/prooftoken"
	id "pramaan/pkg/domain"
	dErrors "pramaan/pkg/domain-errors"
	"pramaan/pkg/platform/tx"
	"pramaan/pkg/requestcontext"
)

// Stable error reasons surfaced to clients during issuance.
const (
	ReasonNotEnrolled         = "not_enrolled"
	ReasonInvalidSample       = "invalid_sample"
	ReasonSampleMismatch      = "sample_mismatch"
	ReasonDuplicateAttendance = "duplicate_attendance"
	ReasonNoCheckIn           = "no_check_in"
)

const tracerName = "pramaan/attendance"

// CommitmentReader is the issuer's view of the enrollment store.
type CommitmentReader interface {
	FindActiveByIdentity(ctx context.Context, identityID id.IdentityID) ([]*enrollmodels.BiometricCommitment, error)
}

// AuditPublisher records attendance lifecycle events. Emit failures abort
// the surrounding operation.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// IssuedProof pairs a stored proof with its scannable token.
type IssuedProof struct {
	Proof *models.AttendanceProof
	Token string
}

// Issuer creates attendance proofs.
type Issuer struct {
	proofs      proof.Store
	commitments CommitmentReader
	backend     proofbackend.Backend
	codec       *prooftoken.Codec
	ttl         time.Duration
	audit       AuditPublisher
	metrics     *metrics.Metrics
	tx          tx.Runner
	logger      *slog.Logger
	tracer      trace.Tracer
}

type IssuerOption func(*Issuer)

func WithIssuerLogger(logger *slog.Logger) IssuerOption {
	return func(i *Issuer) {
		i.logger = logger
	}
}

func WithIssuerAudit(publisher AuditPublisher) IssuerOption {
	return func(i *Issuer) {
		i.audit = publisher
	}
}

func WithIssuerMetrics(m *metrics.Metrics) IssuerOption {
	return func(i *Issuer) {
		i.metrics = m
	}
}

func WithIssuerTxRunner(runner tx.Runner) IssuerOption {
	return func(i *Issuer) {
		i.tx = runner
	}
}

// NewIssuer constructs an Issuer. ttl is the verification window stamped
// into every proof.
func NewIssuer(
	proofs proof.Store,
	commitments CommitmentReader,
	backend proofbackend.Backend,
	codec *prooftoken.Codec,
	ttl time.Duration,
	opts ...IssuerOption,
) *Issuer {
	i := &Issuer{
		proofs:      proofs,
		commitments: commitments,
		backend:     backend,
		codec:       codec,
		ttl:         ttl,
		tx:          tx.Passthrough{},
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue creates an attendance proof for one slot.
//
// Preconditions, checked in order:
//   - the identity holds at least one active commitment (not_enrolled)
//   - the fresh sample binds to one of those commitments (sample_mismatch)
//   - for checkOut, a verified checkIn exists for the date (no_check_in)
//   - the (identity, date, type) slot is free (duplicate_attendance,
//     enforced atomically by the store)
func (i *Issuer) Issue(ctx context.Context, identityID id.IdentityID, orgID id.OrganizationID, typ id.AttendanceType, sample proofbackend.Sample, date id.AttendanceDate, location *models.Location) (*IssuedProof, error) {
	start := time.Now()
	ctx, span := i.tracer.Start(ctx, "attendance.Issue", trace.WithAttributes(
		attribute.String("attendance.type", typ.String()),
	))
	defer span.End()

	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "identity id is required")
	}
	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}
	if !typ.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown attendance type")
	}
	if len(sample) == 0 {
		return nil, dErrors.NewWithReason(dErrors.CodeValidation, ReasonInvalidSample, "biometric sample is required")
	}

	now := requestcontext.Now(ctx)
	if date.IsZero() {
		date = id.NewAttendanceDate(now)
	}

	commitment, err := i.matchCommitment(ctx, identityID, sample)
	if err != nil {
		i.reject(err)
		return nil, err
	}

	if typ == id.AttendanceCheckOut {
		verified, err := i.proofs.HasVerifiedCheckIn(ctx, identityID, date)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check prior check-in")
		}
		if !verified {
			err := dErrors.NewWithReason(dErrors.CodeConflict, ReasonNoCheckIn, "no verified check-in for this date")
			i.reject(err)
			return nil, err
		}
	}

	nullifier := proofbackend.DeriveNullifier(commitment.Commitment, date, typ)
	payload, err := i.backend.Prove(sample, commitment.Salt, proofbackend.PublicInputs{
		Commitment:     commitment.Commitment,
		OrganizationID: orgID,
		Date:           date,
		Type:           typ,
		IssuedAt:       now,
	})
	if err != nil {
		if errors.Is(err, proofbackend.ErrSampleMismatch) {
			err := dErrors.NewWithReason(dErrors.CodeValidation, ReasonSampleMismatch, "sample does not match the enrolled biometric")
			i.reject(err)
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate proof")
	}

	record, err := models.NewAttendanceProof(identityID, orgID, date, typ, payload, nullifier, now, i.ttl, location)
	if err != nil {
		return nil, err
	}

	err = i.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := i.proofs.CreateIfSlotFree(txCtx, record); err != nil {
			switch {
			case errors.Is(err, proof.ErrSlotTaken), errors.Is(err, proof.ErrNullifierTaken):
				return dErrors.NewWithReason(dErrors.CodeConflict, ReasonDuplicateAttendance, "attendance already recorded for this slot")
			default:
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store proof")
			}
		}
		return i.emit(txCtx, audit.Event{
			Action:         audit.ActionProofIssued,
			IdentityID:     identityID,
			OrganizationID: orgID,
			Subject:        record.ProofID.String(),
			Decision:       typ.String(),
		})
	})
	if err != nil {
		i.reject(err)
		return nil, err
	}

	token, err := i.codec.Encode(record.ProofID, orgID, typ, now)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("proof.id", record.ProofID.String()))
	if i.metrics != nil {
		i.metrics.IncrementIssued(typ.String())
		i.metrics.ObserveIssue(start)
	}
	i.logger.InfoContext(ctx, "attendance proof issued",
		"identity_id", identityID,
		"type", typ,
		"date", date,
		"proof_id", record.ProofID,
	)
	return &IssuedProof{Proof: record, Token: token}, nil
}

// matchCommitment finds the active commitment the sample binds to. Binding
// is recomputed per stored salt, so the match also authenticates the
// sample.
func (i *Issuer) matchCommitment(ctx context.Context, identityID id.IdentityID, sample proofbackend.Sample) (*enrollmodels.BiometricCommitment, error) {
	active, err := i.commitments.FindActiveByIdentity(ctx, identityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load enrollments")
	}
	if len(active) == 0 {
		return nil, dErrors.NewWithReason(dErrors.CodeNotFound, ReasonNotEnrolled, "identity has no active enrollment")
	}

	for _, c := range active {
		bound, err := i.backend.Bind(sample, c.Salt)
		if err != nil {
			continue
		}
		if bound == c.Commitment {
			return c, nil
		}
	}
	return nil, dErrors.NewWithReason(dErrors.CodeValidation, ReasonSampleMismatch, "sample does not match any enrolled biometric")
}

func (i *Issuer) reject(err error) {
	if i.metrics == nil {
		return
	}
	if reason := dErrors.Reason(err); reason != "" {
		i.metrics.IncrementIssueReject(reason)
	}
}

func (i *Issuer) emit(ctx context.Context, event audit.Event) error {
	if i.audit == nil {
		return nil
	}
	if err := i.audit.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit trail unavailable")
	}
	return nil
}
