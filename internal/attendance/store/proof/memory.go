package proof

import (
	"context"
	"sort"
	"sync"
	"time"

	"pramaan/internal/attendance/models"
	"pramaan/internal/proofbackend"
	id "pramaan/pkg/domain"
	"pramaan/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded Store for tests and single-node deployments.
// The mutex spans check-then-insert and check-then-update so the slot,
// nullifier and single-verification invariants hold under concurrency.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.ProofID]*models.AttendanceProof
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.ProofID]*models.AttendanceProof)}
}

func (s *InMemory) CreateIfSlotFree(_ context.Context, p *models.AttendanceProof) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.IdentityID == p.IdentityID && r.Date.Equal(p.Date) && r.Type == p.Type {
			return ErrSlotTaken
		}
		if r.Nullifier == p.Nullifier {
			return ErrNullifierTaken
		}
	}

	copied := *p
	s.records[p.ProofID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, proofID id.ProofID) (*models.AttendanceProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[proofID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *InMemory) HasVerifiedCheckIn(_ context.Context, identityID id.IdentityID, date id.AttendanceDate) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.IdentityID == identityID && r.Date.Equal(date) && r.Type == id.AttendanceCheckIn && r.IsVerified {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) FindByIdentityAndDate(_ context.Context, identityID id.IdentityID, date id.AttendanceDate) ([]*models.AttendanceProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.AttendanceProof
	for _, r := range s.records {
		if r.IdentityID == identityID && r.Date.Equal(date) {
			copied := *r
			out = append(out, &copied)
		}
	}
	sortByIssuedAt(out)
	return out, nil
}

func (s *InMemory) MarkVerified(_ context.Context, proofID id.ProofID, adminID id.AdminID, now time.Time) (*models.AttendanceProof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[proofID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if r.IsVerified {
		return nil, ErrAlreadyVerified
	}
	r.ApplyVerification(adminID, now)
	copied := *r
	return &copied, nil
}

func sortByIssuedAt(proofs []*models.AttendanceProof) {
	sort.Slice(proofs, func(i, j int) bool {
		return proofs[i].IssuedAt.Before(proofs[j].IssuedAt)
	})
}

// InMemoryNullifiers is the memory ConsumedNullifierStore.
type InMemoryNullifiers struct {
	mu       sync.Mutex
	consumed map[proofbackend.Nullifier]id.ProofID
}

func NewInMemoryNullifiers() *InMemoryNullifiers {
	return &InMemoryNullifiers{consumed: make(map[proofbackend.Nullifier]id.ProofID)}
}

func (s *InMemoryNullifiers) Consume(_ context.Context, nullifier proofbackend.Nullifier, proofID id.ProofID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.consumed[nullifier]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.consumed[nullifier] = proofID
	return nil
}
