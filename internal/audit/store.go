package audit

import (
	"context"

	id "pramaan/pkg/domain"
)

// Store persists audit events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
