package audit

import (
	"context"
	"sync"

	id "pramaan/pkg/domain"
)

// MemoryStore is an in-memory Store for tests and single-node deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByIdentity(_ context.Context, identityID id.IdentityID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].IdentityID == identityID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}
