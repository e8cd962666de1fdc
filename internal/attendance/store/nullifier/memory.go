package nullifier

import (
	"context"
	"sync"

	"pramaan/internal/proofbackend"
)

// MemoryGuard is the in-process guard for tests and single-node
// deployments.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[proofbackend.Nullifier]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[proofbackend.Nullifier]struct{})}
}

func (g *MemoryGuard) Seen(_ context.Context, n proofbackend.Nullifier) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[n]; ok {
		return true, nil
	}
	g.seen[n] = struct{}{}
	return false, nil
}

func (g *MemoryGuard) Release(_ context.Context, n proofbackend.Nullifier) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, n)
	return nil
}
