// Package ops provides a fail-open audit publisher for operational events.
//
// Routine transitions (status changes, poll outcomes) must never block or
// fail the verification flow. Writes happen best-effort; a circuit breaker
// drops events outright while the store is unhealthy, and high-volume actions
// can be sampled down.
package ops

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "kyc-gateway/pkg/platform/audit"
	"kyc-gateway/pkg/platform/circuit"
)

// Publisher emits operational events with fail-open semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	breaker *circuit.Breaker
	sampler *Sampler
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for dropped-event reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithSampler sets the sampler for high-volume actions.
func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		p.sampler = s
	}
}

// WithBreaker overrides the store-health circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

// New creates an ops publisher writing to the given store.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		breaker: circuit.New(circuit.WithCooldown(time.Minute)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit writes the event best-effort. It never returns an error: failures are
// logged, counted against the breaker, and otherwise ignored.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) {
	if p.store == nil {
		return
	}
	if p.sampler != nil && !p.sampler.ShouldSample(event.Action) {
		return
	}
	if !p.breaker.Allow() {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.AuditEvent(event.Action).Category()

	if err := p.store.Append(ctx, event); err != nil {
		p.breaker.RecordFailure()
		if p.logger != nil {
			p.logger.WarnContext(ctx, "ops audit write failed, event dropped",
				"action", event.Action,
				"session_id", event.SessionID,
				"error", err,
			)
		}
		return
	}
	p.breaker.RecordSuccess()
}
