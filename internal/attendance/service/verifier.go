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
	"pramaan/internal/proofbackend"
	"pramaan/internal/prooftoken"
	id "pramaan/pkg/domain"
	dErrors "pramaan/pkg/domain-errors"
	"pramaan/pkg/platform/sentinel"
	"pramaan/pkg/platform/tx"
	"pramaan/pkg/requestcontext"
)

// Stable error reasons surfaced to clients during verification. Each maps
// to exactly one check, and the checks run in a fixed order, so a given
// token always fails the same way.
const (
	ReasonProofNotFound        = "proof_not_found"
	ReasonOrganizationMismatch = "organization_mismatch"
	ReasonProofExpired         = "proof_expired"
	ReasonAlreadyVerified      = "already_verified"
	ReasonNullifierReused      = "nullifier_reused"
	ReasonMalformedProof       = "malformed_proof"
)

// NullifierGuard is the fast-path replay check in front of the consumed
// nullifier store. It may reject a replay early; it never admits one on
// its own, so guard failures degrade to the storage transaction.
type NullifierGuard interface {
	Seen(ctx context.Context, n proofbackend.Nullifier) (bool, error)
	Release(ctx context.Context, n proofbackend.Nullifier) error
}

// VerificationResult is the outcome of a successful verification.
type VerificationResult struct {
	ProofID    id.ProofID        `json:"proof_id"`
	IdentityID id.IdentityID     `json:"identity_id"`
	Date       id.AttendanceDate `json:"date"`
	Type       id.AttendanceType `json:"type"`
	VerifiedAt time.Time         `json:"verified_at"`
}

// Verifier checks attendance tokens and settles their proofs.
type Verifier struct {
	proofs      proof.Store
	nullifiers  proof.ConsumedNullifierStore
	commitments CommitmentReader
	backend     proofbackend.Backend
	codec       *prooftoken.Codec
	guard       NullifierGuard
	audit       AuditPublisher
	metrics     *metrics.Metrics
	tx          tx.Runner
	logger      *slog.Logger
	tracer      trace.Tracer
}

type VerifierOption func(*Verifier)

func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

func WithVerifierGuard(guard NullifierGuard) VerifierOption {
	return func(v *Verifier) {
		v.guard = guard
	}
}

func WithVerifierAudit(publisher AuditPublisher) VerifierOption {
	return func(v *Verifier) {
		v.audit = publisher
	}
}

func WithVerifierMetrics(m *metrics.Metrics) VerifierOption {
	return func(v *Verifier) {
		v.metrics = m
	}
}

func WithVerifierTxRunner(runner tx.Runner) VerifierOption {
	return func(v *Verifier) {
		v.tx = runner
	}
}

// NewVerifier constructs a Verifier.
func NewVerifier(
	proofs proof.Store,
	nullifiers proof.ConsumedNullifierStore,
	commitments CommitmentReader,
	backend proofbackend.Backend,
	codec *prooftoken.Codec,
	opts ...VerifierOption,
) *Verifier {
	v := &Verifier{
		proofs:      proofs,
		nullifiers:  nullifiers,
		commitments: commitments,
		backend:     backend,
		codec:       codec,
		tx:          tx.Passthrough{},
		logger:      slog.Default(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify settles a scanned token. The checks run in a fixed order and
// stop at the first failure:
//
//	decode, existence, organization, expiry, verification state,
//	nullifier replay, payload validity
//
// then the proof is marked verified and its nullifier consumed in one
// storage transaction, so a crash between the two cannot strand a
// half-settled proof.
func (v *Verifier) Verify(ctx context.Context, token string, orgID id.OrganizationID, adminID id.AdminID) (*VerificationResult, error) {
	start := time.Now()
	ctx, span := v.tracer.Start(ctx, "attendance.Verify")
	defer span.End()

	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organization id is required")
	}
	if adminID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "admin id is required")
	}

	ref, err := v.codec.Decode(token)
	if err != nil {
		return nil, v.fail(ctx, nil, err)
	}
	span.SetAttributes(attribute.String("proof.id", ref.ProofID.String()))

	record, err := v.proofs.FindByID(ctx, ref.ProofID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, v.fail(ctx, nil, dErrors.NewWithReason(dErrors.CodeNotFound, ReasonProofNotFound, "no proof exists for this token"))
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proof")
	}

	if record.OrganizationID != orgID || !ref.Matches(record.OrganizationID) {
		return nil, v.fail(ctx, record, dErrors.NewWithReason(dErrors.CodeForbidden, ReasonOrganizationMismatch, "proof was issued for a different organization"))
	}

	now := requestcontext.Now(ctx)
	if record.IsExpired(now) {
		return nil, v.fail(ctx, record, dErrors.NewWithReason(dErrors.CodeExpired, ReasonProofExpired, "proof expired before verification"))
	}

	if record.IsVerified {
		return nil, v.fail(ctx, record, dErrors.NewWithReason(dErrors.CodeConflict, ReasonAlreadyVerified, "proof has already been verified"))
	}

	guarded, err := v.checkGuard(ctx, record.Nullifier)
	if err != nil {
		return nil, v.fail(ctx, record, err)
	}

	if err := v.checkPayload(ctx, record); err != nil {
		v.releaseGuard(ctx, guarded, record.Nullifier)
		return nil, v.fail(ctx, record, err)
	}

	var verified *models.AttendanceProof
	err = v.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		verified, txErr = v.proofs.MarkVerified(txCtx, record.ProofID, adminID, now)
		if txErr != nil {
			switch {
			case errors.Is(txErr, proof.ErrAlreadyVerified):
				return dErrors.NewWithReason(dErrors.CodeConflict, ReasonAlreadyVerified, "proof has already been verified")
			case errors.Is(txErr, sentinel.ErrNotFound):
				return dErrors.NewWithReason(dErrors.CodeNotFound, ReasonProofNotFound, "no proof exists for this token")
			default:
				return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to mark proof verified")
			}
		}
		if txErr := v.nullifiers.Consume(txCtx, record.Nullifier, record.ProofID, now); txErr != nil {
			if errors.Is(txErr, sentinel.ErrAlreadyUsed) {
				return dErrors.NewWithReason(dErrors.CodeConflict, ReasonNullifierReused, "nullifier has already been consumed")
			}
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to consume nullifier")
		}
		return v.emit(txCtx, audit.Event{
			Action:         audit.ActionProofVerified,
			IdentityID:     record.IdentityID,
			OrganizationID: record.OrganizationID,
			Subject:        record.ProofID.String(),
			Decision:       record.Type.String(),
		})
	})
	if err != nil {
		v.releaseGuard(ctx, guarded, record.Nullifier)
		return nil, v.fail(ctx, record, err)
	}

	if v.metrics != nil {
		v.metrics.IncrementVerified()
		v.metrics.ObserveVerify(start)
	}
	v.logger.InfoContext(ctx, "attendance proof verified",
		"proof_id", verified.ProofID,
		"identity_id", verified.IdentityID,
		"type", verified.Type,
	)
	return &VerificationResult{
		ProofID:    verified.ProofID,
		IdentityID: verified.IdentityID,
		Date:       verified.Date,
		Type:       verified.Type,
		VerifiedAt: *verified.VerifiedAt,
	}, nil
}

// Summary returns the per-day attendance status for one identity.
func (v *Verifier) Summary(ctx context.Context, identityID id.IdentityID, date id.AttendanceDate) (*models.Summary, error) {
	if identityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "identity id is required")
	}
	if date.IsZero() {
		date = id.NewAttendanceDate(requestcontext.Now(ctx))
	}
	proofs, err := v.proofs.FindByIdentityAndDate(ctx, identityID, date)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load proofs")
	}
	return models.NewSummary(identityID, date, proofs), nil
}

// checkGuard asks the fast-path guard whether the nullifier was already
// presented. It reports whether the guard now holds the nullifier, so the
// caller can release it if verification fails later. Guard errors are
// logged and ignored; the storage transaction remains the authority.
func (v *Verifier) checkGuard(ctx context.Context, n proofbackend.Nullifier) (bool, error) {
	if v.guard == nil {
		return false, nil
	}
	seen, err := v.guard.Seen(ctx, n)
	if err != nil {
		v.logger.WarnContext(ctx, "nullifier guard unavailable", "error", err)
		return false, nil
	}
	if seen {
		return false, dErrors.NewWithReason(dErrors.CodeConflict, ReasonNullifierReused, "nullifier has already been presented")
	}
	return true, nil
}

// releaseGuard frees a guard reservation after a failed verification so a
// later valid attempt is not blocked.
func (v *Verifier) releaseGuard(ctx context.Context, held bool, n proofbackend.Nullifier) {
	if !held || v.guard == nil {
		return
	}
	if err := v.guard.Release(ctx, n); err != nil {
		v.logger.WarnContext(ctx, "failed to release nullifier guard", "error", err)
	}
}

// checkPayload validates the stored payload against the public inputs it
// was proven over. The commitment is recovered from the issuer's active
// enrollments by matching the proof's nullifier derivation; a revoked or
// rotated enrollment therefore invalidates outstanding proofs.
func (v *Verifier) checkPayload(ctx context.Context, record *models.AttendanceProof) error {
	active, err := v.commitments.FindActiveByIdentity(ctx, record.IdentityID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load enrollments")
	}
	for _, c := range active {
		if proofbackend.DeriveNullifier(c.Commitment, record.Date, record.Type) != record.Nullifier {
			continue
		}
		if err := v.backend.Verify(record.Payload, record.PublicInputs(c.Commitment)); err != nil {
			return dErrors.NewWithReason(dErrors.CodeValidation, ReasonMalformedProof, "proof payload failed validation")
		}
		return nil
	}
	return dErrors.NewWithReason(dErrors.CodeValidation, ReasonMalformedProof, "proof is not backed by an active enrollment")
}

// fail records a verification failure on metrics and the audit trail.
// The audit write is best effort; the caller's error is already terminal.
func (v *Verifier) fail(ctx context.Context, record *models.AttendanceProof, err error) error {
	reason := dErrors.Reason(err)
	if reason == "" {
		reason = string(dErrors.CodeOf(err))
	}
	if v.metrics != nil {
		v.metrics.IncrementVerificationFailure(reason)
	}
	if v.audit != nil {
		event := audit.Event{
			Action:   audit.ActionVerificationFailed,
			Decision: "rejected",
			Reason:   reason,
		}
		if record != nil {
			event.IdentityID = record.IdentityID
			event.OrganizationID = record.OrganizationID
			event.Subject = record.ProofID.String()
		}
		if auditErr := v.audit.Emit(ctx, event); auditErr != nil {
			v.logger.ErrorContext(ctx, "failed to record verification failure", "error", auditErr)
		}
	}
	return err
}

func (v *Verifier) emit(ctx context.Context, event audit.Event) error {
	if v.audit == nil {
		return nil
	}
	if err := v.audit.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit trail unavailable")
	}
	return nil
}
