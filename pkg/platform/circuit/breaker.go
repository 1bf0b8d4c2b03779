// Package circuit provides a circuit breaker for calls to unreliable
// dependencies. The poller uses one instance per verification session to
// suppress provider calls during outages without cross-session interference.
package circuit

import (
	"sync"
	"time"
)

// State describes the breaker's current disposition.
type State string

const (
	// StateClosed: calls flow normally.
	StateClosed State = "closed"
	// StateOpen: calls are suppressed until the cooldown elapses.
	StateOpen State = "open"
	// StateHalfOpen: cooldown elapsed; exactly one probe call is in flight.
	StateHalfOpen State = "half_open"
)

const (
	defaultFailureThreshold = 5
	defaultCooldown         = 30 * time.Second
)

// Breaker tracks consecutive failures against a protected resource.
// After threshold consecutive failures the circuit opens and Allow reports
// false until the cooldown elapses; then a single probe is let through.
// A probe failure re-opens the circuit and restarts the cooldown clock,
// a probe success closes it.
type Breaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	failures        int
	lastFailureTime time.Time
	state           State

	// now is overridable for tests.
	now func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets the number of consecutive failures that open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithCooldown sets how long the circuit stays open before probing.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}

// New creates a closed breaker with the default threshold and cooldown.
func New(opts ...Option) *Breaker {
	b := &Breaker{
		threshold: defaultFailureThreshold,
		cooldown:  defaultCooldown,
		state:     StateClosed,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether the protected call may proceed. While open it
// returns false until the cooldown has elapsed, then transitions to
// half-open and lets exactly one probe through; subsequent calls are
// suppressed until the probe's outcome is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		// A probe is already in flight.
		return false
	default: // StateOpen
		if b.now().Sub(b.lastFailureTime) > b.cooldown {
			b.state = StateHalfOpen
			return true
		}
		return false
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = StateClosed
}

// RecordFailure increments the consecutive failure count and opens the
// circuit once the threshold is reached. A failed probe re-opens immediately
// and restarts the cooldown clock.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureTime = b.now()
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.state = StateOpen
	}
}

// IsOpen reports whether calls are currently suppressed.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset manually closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = StateClosed
}
