package commitment

import (
	"context"
	"sync"
	"time"

	"pramaan/internal/enrollment/models"
	id "pramaan/pkg/domain"
	"pramaan/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded Store for tests and single-node deployments.
// The mutex spans check-then-insert so the uniqueness invariants hold under
// concurrent use, mirroring the partial unique indexes in Postgres.
type InMemory struct {
	mu      sync.RWMutex
	records []models.BiometricCommitment
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) CreateIfUnique(_ context.Context, c *models.BiometricCommitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		r := &s.records[i]
		if !r.IsActive {
			continue
		}
		if r.IdentityID == c.IdentityID && r.Modality == c.Modality {
			return ErrIdentityEnrolled
		}
		if r.Modality == c.Modality && r.LookupHash == c.LookupHash {
			return ErrBiometricTaken
		}
	}

	s.records = append(s.records, *c)
	return nil
}

func (s *InMemory) FindActive(_ context.Context, identityID id.IdentityID, modality id.Modality) (*models.BiometricCommitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.records {
		r := s.records[i]
		if r.IsActive && r.IdentityID == identityID && r.Modality == modality {
			return &r, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindActiveByIdentity(_ context.Context, identityID id.IdentityID) ([]*models.BiometricCommitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.BiometricCommitment
	for i := range s.records {
		r := s.records[i]
		if r.IsActive && r.IdentityID == identityID {
			out = append(out, &r)
		}
	}
	return out, nil
}

func (s *InMemory) DeactivateActive(_ context.Context, identityID id.IdentityID, modality id.Modality, reason string, now time.Time) (*models.BiometricCommitment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		r := &s.records[i]
		if r.IsActive && r.IdentityID == identityID && r.Modality == modality {
			r.ApplyDeactivation(reason, now)
			copied := *r
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
