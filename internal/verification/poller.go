package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kyc-gateway/internal/provider"
	"kyc-gateway/internal/verification/decision"
	dErrors "kyc-gateway/pkg/domain-errors"
	"kyc-gateway/pkg/platform/audit"
	"kyc-gateway/pkg/platform/sentinel"
)

// pollOnce is one tick of the status poller: check the session timeout, ask
// the breaker for permission, fetch the decision, and fold the result into
// the state machine. gen identifies the attempt the tick was scheduled for;
// a mismatch means the attempt was torn down and the tick is dropped.
func (m *Manager) pollOnce(ctx context.Context, gen uint64) {
	m.mu.Lock()
	if m.generation != gen || !m.state.Status.Active() || m.session == nil {
		m.mu.Unlock()
		return
	}

	// The hard ceiling fires even while the breaker is open; a provider
	// outage must not keep a session alive forever.
	if m.state.StartedAt != nil && m.now().Sub(*m.state.StartedAt) >= m.cfg.SessionTimeout {
		notify := m.expireLocked(ctx, "session_timeout")
		m.mu.Unlock()
		m.flush(notify)
		return
	}

	if !m.breaker.Allow() {
		m.metrics.RecordTickSkipped()
		m.mu.Unlock()
		return
	}

	sessionID := m.session.SessionID
	m.mu.Unlock()

	begin := m.now()
	status, err := m.gateway.GetSessionDecision(ctx, sessionID)
	m.metrics.ObservePoll(m.now().Sub(begin))

	m.mu.Lock()
	if m.generation != gen || !m.state.Status.Active() {
		// Stale result: the attempt was cancelled, reset, or finished while
		// the request was in flight.
		m.mu.Unlock()
		return
	}

	var notify []func()
	switch {
	case err == nil:
		m.notFoundCount = 0
		m.errorCount = 0
		m.breaker.RecordSuccess()
		notify = m.applyProviderStatusLocked(ctx, status.Status, status.Decision)

	case errors.Is(err, sentinel.ErrNotFound):
		// Transient at the provider right after creation; only a sustained
		// run means the session is truly gone. The round-trip itself
		// succeeded, so the breaker records a success; a half-open probe
		// answered 404 must close the circuit, not strand it.
		m.notFoundCount++
		m.errorCount = 0
		m.breaker.RecordSuccess()
		if m.notFoundCount >= m.cfg.NotFoundThreshold {
			notify = m.expireLocked(ctx, "session_not_found")
		}

	default:
		code := dErrors.CodeOf(err)
		m.metrics.RecordProviderError(string(code))
		wasOpen := m.breaker.IsOpen()
		m.breaker.RecordFailure()
		if !wasOpen && m.breaker.IsOpen() {
			m.metrics.RecordBreakerOpen()
			m.logger.WarnContext(ctx, "provider breaker opened",
				"registration_id", m.registrationID, "failures", m.breaker.Failures())
		}
		m.errorCount++
		if m.errorCount >= m.cfg.ErrorThreshold {
			notify = m.failLocked(ctx, dErrors.CodeNetworkError,
				"No se pudo consultar el estado de la verificación. Verifique su conexión e intente nuevamente.",
				"consecutive_errors")
		}
	}

	m.mu.Unlock()
	m.flush(notify)
}

// HandleProviderUpdate feeds a pushed status (webhook) through the same
// mapping as a polled one. Updates for an inactive or unknown attempt are
// ignored.
func (m *Manager) HandleProviderUpdate(ctx context.Context, sessionID, status string, d *provider.Decision) (State, error) {
	m.mu.Lock()
	if m.session == nil || m.session.SessionID != sessionID {
		st := m.snapshotLocked()
		m.mu.Unlock()
		return st, dErrors.New(dErrors.CodeNotFound, "La sesión de verificación no existe.")
	}
	if !m.state.Status.Active() {
		st := m.snapshotLocked()
		m.mu.Unlock()
		return st, nil
	}
	notify := m.applyProviderStatusLocked(ctx, status, d)
	st := m.snapshotLocked()
	m.mu.Unlock()

	m.flush(notify)
	return st, nil
}

// applyProviderStatusLocked folds one provider status report into the state
// machine: progress floors, intermediate transitions, and terminal handling.
func (m *Manager) applyProviderStatusLocked(ctx context.Context, raw string, d *provider.Decision) []func() {
	mapped := MapProviderStatus(raw)
	if !mapped.Recognized {
		m.logger.WarnContext(ctx, "unrecognized provider status, keeping session active",
			"registration_id", m.registrationID, "provider_status", raw)
	}

	switch mapped.Terminal {
	case TerminalSuccess:
		return m.completeLocked(ctx, raw, d)
	case TerminalFailure:
		if mapped.Status == StatusExpired {
			return m.expireLocked(ctx, "provider_expired")
		}
		return m.failLocked(ctx, dErrors.CodeComplianceViolation,
			terminalFailureMessage(raw), fmt.Sprintf("provider_status=%s", raw))
	}

	// Progress is monotonic: the floor only ever raises it.
	if mapped.ProgressFloor > m.state.Progress {
		m.state.Progress = mapped.ProgressFloor
	}
	// Forward-only, and a session under manual review stays manual; the
	// provider cannot tell the difference and must not bounce it back to
	// user_verifying.
	if mapped.Status != m.state.Status &&
		statusRank(mapped.Status) > statusRank(m.state.Status) &&
		!(m.state.Status == StatusManualVerification && mapped.Status == StatusUserVerifying) {
		return m.transitionLocked(ctx, mapped.Status, nil)
	}
	return nil
}

// completeLocked finishes the attempt: polling stops, the decision is scored,
// and the completion callback is scheduled after the configured delay so the
// applicant sees the final progress state before the flow moves on.
func (m *Manager) completeLocked(ctx context.Context, providerStatus string, d *provider.Decision) []func() {
	summary := decision.Summarize(d, m.cfg.MinScore)
	verdict := decision.Evaluate(d, m.cfg.MinScore)

	sessionID := m.session.SessionID
	m.teardownLocked()
	m.metrics.SessionEnded()

	var notify []func()
	notify = append(notify, m.transitionLocked(ctx, StatusCompleted, func(s *State) {
		s.Progress = 100
		now := m.now()
		s.CompletedAt = &now
		s.Error = ""
		s.ErrorCode = ""
	})...)

	outcome := "non_compliant"
	if verdict.Compliant {
		outcome = "compliant"
	}
	m.metrics.RecordDecision(outcome)
	notify = append(notify, m.auditLocked(ctx, audit.EventDecisionEvaluated, outcome,
		fmt.Sprintf("score=%d provider_status=%s", verdict.Score, providerStatus)))
	notify = append(notify, m.auditLocked(ctx, audit.EventVerificationCompleted, outcome, ""))

	if cb := m.callbacks.OnComplete; cb != nil {
		data := CompletionData{
			SessionID: sessionID,
			Decision:  d,
			Summary:   summary,
			Verdict:   verdict,
		}
		gen := m.generation
		delay := m.cfg.CompletionDelay
		notify = append(notify, func() {
			if delay <= 0 {
				cb(data)
				return
			}
			m.mu.Lock()
			m.completionTimer = time.AfterFunc(delay, func() {
				m.mu.Lock()
				stale := m.generation != gen
				m.mu.Unlock()
				if !stale {
					cb(data)
				}
			})
			m.mu.Unlock()
		})
	}
	return notify
}

func (m *Manager) failLocked(ctx context.Context, code dErrors.Code, message, reason string) []func() {
	m.teardownLocked()
	m.metrics.SessionEnded()

	var notify []func()
	notify = append(notify, m.transitionLocked(ctx, StatusFailed, func(s *State) {
		s.Error = message
		s.ErrorCode = code
		now := m.now()
		s.CompletedAt = &now
	})...)
	notify = append(notify, m.auditLocked(ctx, audit.EventVerificationFailed, string(code), reason))
	return notify
}

func (m *Manager) expireLocked(ctx context.Context, reason string) []func() {
	m.teardownLocked()
	m.metrics.SessionEnded()

	var notify []func()
	notify = append(notify, m.transitionLocked(ctx, StatusExpired, func(s *State) {
		s.Error = "La sesión de verificación ha expirado. Intente nuevamente."
		s.ErrorCode = dErrors.CodeSessionExpired
		now := m.now()
		s.CompletedAt = &now
	})...)
	notify = append(notify, m.auditLocked(ctx, audit.EventVerificationExpired, "expired", reason))
	return notify
}

func terminalFailureMessage(providerStatus string) string {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "declined", "kyc declined", "rejected":
		return "La verificación fue rechazada. Revise sus documentos e intente nuevamente."
	case "abandoned":
		return "La verificación fue abandonada antes de completarse."
	default:
		return "La verificación no pudo completarse."
	}
}
