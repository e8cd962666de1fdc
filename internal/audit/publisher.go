package audit

import (
	"context"
	"fmt"
	"log/slog"

	id "pramaan/pkg/domain"
	"pramaan/pkg/requestcontext"
)

// Publisher captures structured audit events with fail-closed semantics:
// Emit blocks until the store write succeeds, and if it fails the calling
// operation must fail too. An optional sink receives a best-effort copy of
// each persisted event for downstream fan-out.
type Publisher struct {
	store  Store
	sink   chan<- Event
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithSink attaches a channel that receives a copy of every persisted
// event. Delivery is best-effort; a full sink never blocks Emit.
func WithSink(sink chan<- Event) Option {
	return func(p *Publisher) {
		p.sink = sink
	}
}

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes an event to the audit store. Returns an error
// if persistence fails; the caller must not proceed with its operation.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ActorID == "" {
		if adminID := requestcontext.AdminID(ctx); !adminID.IsNil() {
			event.ActorID = adminID.String()
		}
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit persistence failed",
				"action", event.Action,
				"identity_id", event.IdentityID,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}

	if p.sink != nil {
		select {
		case p.sink <- event:
		default:
			if p.logger != nil {
				p.logger.WarnContext(ctx, "audit sink full, dropping fan-out copy",
					"action", event.Action,
				)
			}
		}
	}
	return nil
}

func (p *Publisher) List(ctx context.Context, identityID id.IdentityID) ([]Event, error) {
	return p.store.ListByIdentity(ctx, identityID)
}
