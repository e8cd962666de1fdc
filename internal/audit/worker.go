package audit

import (
	"context"
	"log/slog"
)

// Sink receives persisted audit events for downstream delivery.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Worker drains the publisher's fan-out channel and forwards events to a
// sink. The store write has already happened by the time an event reaches
// the worker, so sink failures are logged and skipped rather than retried.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Publish(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit sink publish failed",
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
