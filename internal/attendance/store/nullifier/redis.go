// Package nullifier provides the fast-path replay guard in front of the
// authoritative consumed_nullifiers table. The guard may reject a replay
// early; it never admits one on its own, and guard unavailability degrades
// to the storage transaction.
package nullifier

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"pramaan/internal/proofbackend"
)

const seenKeyPrefix = "pramaan:nullifier:"

// RedisGuard marks nullifiers as seen during verification using atomic
// SET NX with a TTL, shared across instances.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard constructs the guard. ttl bounds how long a seen marker
// lives; the storage transaction remains the authority after expiry.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

// Seen atomically marks the nullifier and reports whether it was already
// marked. Errors are returned as-is so callers can decide to degrade.
func (g *RedisGuard) Seen(ctx context.Context, n proofbackend.Nullifier) (bool, error) {
	set, err := g.client.SetNX(ctx, seenKeyPrefix+string(n), "1", g.ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release clears a seen marker, used when verification fails after the
// guard admitted the nullifier so a later valid attempt is not blocked.
func (g *RedisGuard) Release(ctx context.Context, n proofbackend.Nullifier) error {
	return g.client.Del(ctx, seenKeyPrefix+string(n)).Err()
}
