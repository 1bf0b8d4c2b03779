// Package compliance provides a fail-closed audit publisher for regulatory
// events.
//
// Publisher emits compliance events with synchronous, fail-closed semantics.
// The caller blocks until the write succeeds; if it fails, an error is
// returned and the calling operation MUST fail.
//
// Use for: verification_completed, verification_failed, verification_expired,
// decision_evaluated.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "kyc-gateway/pkg/platform/audit"
)

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New creates a compliance publisher writing to the given store.
func New(store audit.Store, opts ...Option) (*Publisher, error) {
	if store == nil {
		return nil, fmt.Errorf("compliance.New: store is required")
	}
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Emit writes the event synchronously. An error means the event was NOT
// persisted and the caller must treat the operation as failed.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.AuditEvent(event.Action).Category()

	if err := p.store.Append(ctx, event); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "compliance audit write failed",
				"action", event.Action,
				"session_id", event.SessionID,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit write: %w", err)
	}
	return nil
}
