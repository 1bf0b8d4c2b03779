package worker

import (
	"context"
	"log/slog"

	audit "kyc-gateway/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. It decouples
// event producers from store latency; the verification core never blocks on
// the audit sink for operational events.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

// New creates a worker draining inbox into store.
func New(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run processes events until the context is cancelled. Store failures are
// logged and the event dropped; the worker keeps running.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				if w.logger != nil {
					w.logger.WarnContext(ctx, "audit worker append failed",
						"action", event.Action,
						"session_id", event.SessionID,
						"error", err,
					)
				}
			}
		}
	}
}
