package service

//go:generate mockgen -source=issuer.go -destination=mocks/issuer_mocks.go -package=mocks CommitmentReader,AuditPublisher
//go:generate mockgen -source=verifier.go -destination=mocks/verifier_mocks.go -package=mocks NullifierGuard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pramaan/internal/attendance/models"
	"pramaan/internal/attendance/store/proof"
	"pramaan/internal/audit"
	enrollmodels "pramaan/internal/enrollment/models"
	"pramaan/internal/enrollment/store/commitment"
	"pramaan/internal/proofbackend"
	"pramaan/internal/prooftoken"
	id "pramaan/pkg/domain"
	dErrors "pramaan/pkg/domain-errors"
	"pramaan/pkg/requestcontext"
)

const testTTL = 5 * time.Minute

type issuerFixture struct {
	issuer      *Issuer
	proofs      *proof.InMemory
	commitments *commitment.InMemory
	backend     proofbackend.Backend
	codec       *prooftoken.Codec
	audit       *audit.MemoryStore
}

func newIssuerFixture(t *testing.T) *issuerFixture {
	t.Helper()

	proofs := proof.NewInMemory()
	commitments := commitment.NewInMemory()
	backend := proofbackend.NewLocal()
	codec := prooftoken.NewCodec("issuer-test-key", "pramaan")
	auditStore := audit.NewMemoryStore()
	issuer := NewIssuer(proofs, commitments, backend, codec, testTTL,
		WithIssuerAudit(audit.NewPublisher(auditStore)),
	)
	return &issuerFixture{
		issuer:      issuer,
		proofs:      proofs,
		commitments: commitments,
		backend:     backend,
		codec:       codec,
		audit:       auditStore,
	}
}

// enroll seeds an active commitment so the identity can be issued proofs.
func (f *issuerFixture) enroll(t *testing.T, identityID id.IdentityID, orgID id.OrganizationID, modality id.Modality, sample proofbackend.Sample) *enrollmodels.BiometricCommitment {
	t.Helper()

	salt, err := proofbackend.NewSalt()
	require.NoError(t, err)
	bound, err := f.backend.Bind(sample, salt)
	require.NoError(t, err)
	record, err := enrollmodels.NewBiometricCommitment(identityID, orgID, modality, bound, salt, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, f.commitments.CreateIfUnique(context.Background(), record))
	return record
}

func TestIssue(t *testing.T) {
	ctx := context.Background()
	identityID := id.IdentityID(uuid.New())
	orgID := id.OrganizationID(uuid.New())
	sample := proofbackend.Sample("fingerprint-template")

	t.Run("issues proof with token and audit trail", func(t *testing.T) {
		f := newIssuerFixture(t)
		f.enroll(t, identityID, orgID, id.ModalityFingerprint, sample)

		issued, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, sample, id.AttendanceDate{}, nil)
		require.NoError(t, err)
		assert.Equal(t, identityID, issued.Proof.IdentityID)
		assert.Equal(t, id.AttendanceCheckIn, issued.Proof.Type)
		assert.False(t, issued.Proof.IsVerified)
		assert.Equal(t, issued.Proof.IssuedAt.Add(testTTL), issued.Proof.ExpiresAt)
		assert.NotEmpty(t, issued.Proof.Nullifier)
		assert.NotEmpty(t, issued.Token)

		ref, err := f.codec.Decode(issued.Token)
		require.NoError(t, err)
		assert.Equal(t, issued.Proof.ProofID, ref.ProofID)
		assert.True(t, ref.Matches(orgID))

		events, err := f.audit.ListByIdentity(ctx, identityID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.ActionProofIssued, events[0].Action)
	})

	t.Run("pins issuance time to the request clock", func(t *testing.T) {
		f := newIssuerFixture(t)
		f.enroll(t, identityID, orgID, id.ModalityFingerprint, sample)
		pinned := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

		issued, err := f.issuer.Issue(requestcontext.WithTime(ctx, pinned), identityID, orgID, id.AttendanceCheckIn, sample, id.AttendanceDate{}, nil)
		require.NoError(t, err)
		assert.Equal(t, pinned, issued.Proof.IssuedAt)
		assert.Equal(t, id.NewAttendanceDate(pinned), issued.Proof.Date)
	})

	t.Run("unenrolled identity is rejected", func(t *testing.T) {
		f := newIssuerFixture(t)

		_, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, sample, id.AttendanceDate{}, nil)
		require.Error(t, err)
		assert.Equal(t, ReasonNotEnrolled, dErrors.Reason(err))
	})

	t.Run("wrong sample is rejected", func(t *testing.T) {
		f := newIssuerFixture(t)
		f.enroll(t, identityID, orgID, id.ModalityFingerprint, sample)

		_, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, proofbackend.Sample("someone-else"), id.AttendanceDate{}, nil)
		require.Error(t, err)
		assert.Equal(t, ReasonSampleMismatch, dErrors.Reason(err))
	})

	t.Run("matches sample across multiple enrolled modalities", func(t *testing.T) {
		f := newIssuerFixture(t)
		faceSample := proofbackend.Sample("face-template")
		f.enroll(t, identityID, orgID, id.ModalityFingerprint, sample)
		f.enroll(t, identityID, orgID, id.ModalityFace, faceSample)

		_, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, faceSample, id.AttendanceDate{}, nil)
		require.NoError(t, err)
	})

	t.Run("same slot cannot be issued twice", func(t *testing.T) {
		f := newIssuerFixture(t)
		f.enroll(t, identityID, orgID, id.ModalityFingerprint, sample)

		_, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, sample, id.AttendanceDate{}, nil)
		require.NoError(t, err)

		_, err = f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, sample, id.AttendanceDate{}, nil)
		require.Error(t, err)
		assert.Equal(t, ReasonDuplicateAttendance, dErrors.Reason(err))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("different dates use different slots", func(t *testing.T) {
		f := newIssuerFixture(t)
		f.enroll(t, identityID, orgID, id.ModalityFingerprint, sample)
		monday := id.NewAttendanceDate(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
		tuesday := id.NewAttendanceDate(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))

		_, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, sample, monday, nil)
		require.NoError(t, err)
		_, err = f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, sample, tuesday, nil)
		require.NoError(t, err)
	})

	t.Run("location is carried on the proof", func(t *testing.T) {
		f := newIssuerFixture(t)
		f.enroll(t, identityID, orgID, id.ModalityFingerprint, sample)
		loc := &models.Location{Latitude: 12.9716, Longitude: 77.5946, Accuracy: 8}

		issued, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, sample, id.AttendanceDate{}, loc)
		require.NoError(t, err)
		require.NotNil(t, issued.Proof.Location)
		assert.Equal(t, *loc, *issued.Proof.Location)
	})

	t.Run("invalid input is rejected before any lookup", func(t *testing.T) {
		f := newIssuerFixture(t)

		_, err := f.issuer.Issue(ctx, id.IdentityID{}, orgID, id.AttendanceCheckIn, sample, id.AttendanceDate{}, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

		_, err = f.issuer.Issue(ctx, identityID, id.OrganizationID{}, id.AttendanceCheckIn, sample, id.AttendanceDate{}, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

		_, err = f.issuer.Issue(ctx, identityID, orgID, id.AttendanceType("lunch"), sample, id.AttendanceDate{}, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

		_, err = f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, nil, id.AttendanceDate{}, nil)
		assert.Equal(t, ReasonInvalidSample, dErrors.Reason(err))
	})
}

func TestIssueCheckOutOrdering(t *testing.T) {
	ctx := context.Background()
	identityID := id.IdentityID(uuid.New())
	orgID := id.OrganizationID(uuid.New())
	adminID := id.AdminID(uuid.New())
	sample := proofbackend.Sample("fingerprint-template")

	t.Run("check-out without any check-in is rejected", func(t *testing.T) {
		f := newIssuerFixture(t)
		f.enroll(t, identityID, orgID, id.ModalityFingerprint, sample)

		_, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckOut, sample, id.AttendanceDate{}, nil)
		require.Error(t, err)
		assert.Equal(t, ReasonNoCheckIn, dErrors.Reason(err))
	})

	t.Run("unverified check-in does not unlock check-out", func(t *testing.T) {
		f := newIssuerFixture(t)
		f.enroll(t, identityID, orgID, id.ModalityFingerprint, sample)

		_, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, sample, id.AttendanceDate{}, nil)
		require.NoError(t, err)

		_, err = f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckOut, sample, id.AttendanceDate{}, nil)
		require.Error(t, err)
		assert.Equal(t, ReasonNoCheckIn, dErrors.Reason(err))
	})

	t.Run("verified check-in unlocks check-out", func(t *testing.T) {
		f := newIssuerFixture(t)
		f.enroll(t, identityID, orgID, id.ModalityFingerprint, sample)

		checkIn, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, sample, id.AttendanceDate{}, nil)
		require.NoError(t, err)
		_, err = f.proofs.MarkVerified(ctx, checkIn.Proof.ProofID, adminID, time.Now().UTC())
		require.NoError(t, err)

		checkOut, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckOut, sample, id.AttendanceDate{}, nil)
		require.NoError(t, err)
		assert.Equal(t, id.AttendanceCheckOut, checkOut.Proof.Type)
		assert.NotEqual(t, checkIn.Proof.Nullifier, checkOut.Proof.Nullifier)
	})
}

func TestIssueFailsClosedOnAudit(t *testing.T) {
	ctx := context.Background()
	identityID := id.IdentityID(uuid.New())
	orgID := id.OrganizationID(uuid.New())
	sample := proofbackend.Sample("fingerprint-template")

	f := newIssuerFixture(t)
	f.enroll(t, identityID, orgID, id.ModalityFingerprint, sample)
	f.issuer.audit = failingAudit{}

	_, err := f.issuer.Issue(ctx, identityID, orgID, id.AttendanceCheckIn, sample, id.AttendanceDate{}, nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

type failingAudit struct{}

func (failingAudit) Emit(context.Context, audit.Event) error {
	return assert.AnError
}
