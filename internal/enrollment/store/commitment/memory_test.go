package commitment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pramaan/internal/enrollment/models"
	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	"pramaan/pkg/platform/sentinel"
)

type CommitmentStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *CommitmentStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestCommitmentStoreSuite(t *testing.T) {
	suite.Run(t, new(CommitmentStoreSuite))
}

func (s *CommitmentStoreSuite) newCommitment(identityID id.IdentityID, modality id.Modality, raw string) *models.BiometricCommitment {
	salt, err := proofbackend.NewSalt()
	s.Require().NoError(err)

	backend := proofbackend.NewLocal()
	bound, err := backend.Bind(proofbackend.Sample(raw), salt)
	s.Require().NoError(err)

	c, err := models.NewBiometricCommitment(
		identityID,
		id.OrganizationID(uuid.New()),
		modality,
		bound,
		salt,
		time.Now(),
	)
	s.Require().NoError(err)
	return c
}

func (s *CommitmentStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds active commitment", func() {
		identityID := id.IdentityID(uuid.New())
		c := s.newCommitment(identityID, id.ModalityFingerprint, "sample-a")
		s.Require().NoError(s.store.CreateIfUnique(s.ctx, c))

		found, err := s.store.FindActive(s.ctx, identityID, id.ModalityFingerprint)
		s.Require().NoError(err)
		s.Equal(c.Commitment, found.Commitment)
		s.True(found.IsActive)
	})

	s.Run("returns ErrNotFound for unknown identity", func() {
		_, err := s.store.FindActive(s.ctx, id.IdentityID(uuid.New()), id.ModalityFingerprint)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("lists active commitments across modalities", func() {
		identityID := id.IdentityID(uuid.New())
		s.Require().NoError(s.store.CreateIfUnique(s.ctx, s.newCommitment(identityID, id.ModalityFingerprint, "sample-b")))
		s.Require().NoError(s.store.CreateIfUnique(s.ctx, s.newCommitment(identityID, id.ModalityFace, "sample-c")))

		found, err := s.store.FindActiveByIdentity(s.ctx, identityID)
		s.Require().NoError(err)
		s.Len(found, 2)
	})
}

func (s *CommitmentStoreSuite) TestUniqueness() {
	s.Run("rejects second active commitment for same identity and modality", func() {
		identityID := id.IdentityID(uuid.New())
		s.Require().NoError(s.store.CreateIfUnique(s.ctx, s.newCommitment(identityID, id.ModalityFingerprint, "sample-d")))

		err := s.store.CreateIfUnique(s.ctx, s.newCommitment(identityID, id.ModalityFingerprint, "sample-e"))
		s.Require().ErrorIs(err, ErrIdentityEnrolled)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects same biometric under a different identity", func() {
		first := s.newCommitment(id.IdentityID(uuid.New()), id.ModalityFingerprint, "shared-sample")
		s.Require().NoError(s.store.CreateIfUnique(s.ctx, first))

		second := s.newCommitment(id.IdentityID(uuid.New()), id.ModalityFingerprint, "other")
		second.Commitment = first.Commitment
		second.LookupHash = first.LookupHash

		err := s.store.CreateIfUnique(s.ctx, second)
		s.Require().ErrorIs(err, ErrBiometricTaken)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("allows same biometric under a different modality", func() {
		first := s.newCommitment(id.IdentityID(uuid.New()), id.ModalityFingerprint, "cross-modality")
		s.Require().NoError(s.store.CreateIfUnique(s.ctx, first))

		second := s.newCommitment(id.IdentityID(uuid.New()), id.ModalityFace, "unrelated")
		second.LookupHash = first.LookupHash

		s.Require().NoError(s.store.CreateIfUnique(s.ctx, second))
	})
}

func (s *CommitmentStoreSuite) TestDeactivation() {
	s.Run("deactivates and frees both uniqueness slots", func() {
		identityID := id.IdentityID(uuid.New())
		first := s.newCommitment(identityID, id.ModalityFingerprint, "rotate-me")
		s.Require().NoError(s.store.CreateIfUnique(s.ctx, first))

		now := time.Now()
		deactivated, err := s.store.DeactivateActive(s.ctx, identityID, id.ModalityFingerprint, "re-enrollment", now)
		s.Require().NoError(err)
		s.False(deactivated.IsActive)
		s.Equal("re-enrollment", deactivated.DeactivationReason)
		s.Require().NotNil(deactivated.DeactivatedAt)

		_, err = s.store.FindActive(s.ctx, identityID, id.ModalityFingerprint)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		// Same biometric can now be enrolled again.
		second := s.newCommitment(identityID, id.ModalityFingerprint, "other")
		second.Commitment = first.Commitment
		second.LookupHash = first.LookupHash
		s.Require().NoError(s.store.CreateIfUnique(s.ctx, second))
	})

	s.Run("returns ErrNotFound when nothing is active", func() {
		_, err := s.store.DeactivateActive(s.ctx, id.IdentityID(uuid.New()), id.ModalityFace, "revoked", time.Now())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
