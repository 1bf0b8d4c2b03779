package verification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kyc-gateway/internal/provider"
	dErrors "kyc-gateway/pkg/domain-errors"
	"kyc-gateway/pkg/platform/sentinel"
)

// =============================================================================
// Status Poller Test Suite
// =============================================================================
// Justification for unit tests: the poller is where provider flakiness meets
// the state machine. Tests drive ticks directly (the scheduled interval is an
// hour) to verify the 404 run, the consecutive-error budget, the breaker, the
// hard session ceiling, and terminal decision handling deterministically.

type PollerSuite struct {
	ManagerSuite
}

func TestPollerSuite(t *testing.T) {
	suite.Run(t, new(PollerSuite))
}

// tick runs one poll against the current attempt.
func (s *PollerSuite) tick(m *Manager) {
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()
	m.pollOnce(context.Background(), gen)
}

func (s *PollerSuite) status(status string, d *provider.Decision) *provider.SessionStatus {
	return &provider.SessionStatus{SessionID: testSessionID, Status: status, Decision: d}
}

func approvedDecision() *provider.Decision {
	conf := func(v float64) *float64 { return &v }
	return &provider.Decision{
		Overall:        "approved",
		IDVerification: &provider.CheckResult{Status: provider.CheckApproved},
		FaceMatch:      &provider.CheckResult{Status: provider.FaceMatchMatch, Confidence: conf(96)},
		Liveness:       &provider.CheckResult{Status: provider.LivenessLive, Confidence: conf(91)},
		AML:            &provider.AMLResult{Status: provider.AMLClear},
	}
}

// =============================================================================
// Progress and Intermediate Transitions
// =============================================================================

func (s *PollerSuite) TestProgression() {
	s.Run("provider statuses advance status and progress monotonically", func() {
		s.startActive()

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("In Progress", nil), nil)
		s.tick(s.manager)
		st := s.manager.State()
		s.Equal(40, st.Progress)

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("Processing", nil), nil)
		s.tick(s.manager)
		st = s.manager.State()
		s.Equal(StatusProcessing, st.Status)
		s.Equal(75, st.Progress)

		// A replayed earlier status must not regress either status or
		// progress.
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("Not Started", nil), nil)
		s.tick(s.manager)
		st = s.manager.State()
		s.Equal(StatusProcessing, st.Status)
		s.Equal(75, st.Progress)
	})

	s.Run("manual verification is not bounced back to user_verifying", func() {
		s.startActive()
		s.Equal(StatusManualVerification, s.manager.State().Status)

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("In Progress", nil), nil)
		s.tick(s.manager)
		s.Equal(StatusManualVerification, s.manager.State().Status)
	})

	s.Run("unknown provider status keeps the session active", func() {
		s.startActive()

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("Totally New Status", nil), nil)
		s.tick(s.manager)

		st := s.manager.State()
		s.False(st.Status.Terminal())
		s.Equal(25, st.Progress)
	})
}

// =============================================================================
// Not-Found Run
// =============================================================================

func (s *PollerSuite) TestNotFoundHandling() {
	notFound := dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "La sesión de verificación no existe.")

	s.Run("session survives nine consecutive 404s", func() {
		s.startActive()
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, notFound).Times(9)

		for i := 0; i < 9; i++ {
			s.tick(s.manager)
		}
		s.False(s.manager.State().Status.Terminal())
	})

	s.Run("tenth consecutive 404 expires the session", func() {
		m := s.newManager()
		s.expectCreateSession()
		_, err := m.StartVerification(context.Background(), validApplicant())
		s.Require().NoError(err)

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, notFound).Times(10)
		for i := 0; i < 10; i++ {
			s.tick(m)
		}

		st := m.State()
		s.Equal(StatusExpired, st.Status)
		s.Equal(dErrors.CodeSessionExpired, st.ErrorCode)
	})

	s.Run("a successful poll resets the 404 run", func() {
		m := s.newManager()
		s.expectCreateSession()
		_, err := m.StartVerification(context.Background(), validApplicant())
		s.Require().NoError(err)

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, notFound).Times(9)
		for i := 0; i < 9; i++ {
			s.tick(m)
		}
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("In Progress", nil), nil)
		s.tick(m)

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, notFound).Times(9)
		for i := 0; i < 9; i++ {
			s.tick(m)
		}
		s.False(m.State().Status.Terminal())
	})

	s.Run("404s do not open the breaker", func() {
		s.startActive()
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, notFound).Times(9)
		for i := 0; i < 9; i++ {
			s.tick(s.manager)
		}
		s.False(s.manager.breaker.IsOpen())
	})
}

// =============================================================================
// Consecutive Errors and the Breaker
// =============================================================================

func (s *PollerSuite) TestErrorHandling() {
	serverErr := dErrors.New(dErrors.CodeServerError, "El servicio de verificación no está disponible.")

	s.Run("three consecutive errors fail the attempt and stop polling", func() {
		s.startActive()
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, serverErr).Times(3)

		for i := 0; i < 3; i++ {
			s.tick(s.manager)
		}
		st := s.manager.State()
		s.Equal(StatusFailed, st.Status)
		s.Equal(dErrors.CodeNetworkError, st.ErrorCode)
		s.Contains(st.Error, "conexión")

		// A late tick for the dead attempt must not reach the provider.
		s.tick(s.manager)
	})

	s.Run("a success in between resets the error budget", func() {
		s.startActive()
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, serverErr).Times(2)
		s.tick(s.manager)
		s.tick(s.manager)

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("In Progress", nil), nil)
		s.tick(s.manager)

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, serverErr).Times(2)
		s.tick(s.manager)
		s.tick(s.manager)
		s.False(s.manager.State().Status.Terminal())
	})

	s.Run("breaker opens after five failures and skips polls until cooldown", func() {
		cfg := s.testConfig()
		cfg.ErrorThreshold = 100 // isolate breaker behavior
		m := s.newManager(WithConfig(cfg))
		s.expectCreateSession()
		_, err := m.StartVerification(context.Background(), validApplicant())
		s.Require().NoError(err)

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, serverErr).Times(5)
		for i := 0; i < 5; i++ {
			s.tick(m)
		}
		s.True(m.breaker.IsOpen())

		// While open, ticks never reach the provider.
		s.tick(m)
		s.tick(m)

		// After the cooldown one probe goes through; success closes the
		// breaker again.
		s.clock.Advance(31 * time.Second)
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("In Progress", nil), nil)
		s.tick(m)
		s.False(m.breaker.IsOpen())
		s.False(m.State().Status.Terminal())
	})

	s.Run("half-open probe answered 404 closes the breaker", func() {
		notFound := dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "La sesión de verificación no existe.")
		cfg := s.testConfig()
		cfg.ErrorThreshold = 100
		m := s.newManager(WithConfig(cfg))
		s.expectCreateSession()
		_, err := m.StartVerification(context.Background(), validApplicant())
		s.Require().NoError(err)

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, serverErr).Times(5)
		for i := 0; i < 5; i++ {
			s.tick(m)
		}
		s.True(m.breaker.IsOpen())

		// The round-trip behind a 404 succeeded, so the probe must close
		// the circuit instead of stranding it half-open.
		s.clock.Advance(31 * time.Second)
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, notFound)
		s.tick(m)
		s.False(m.breaker.IsOpen())

		// Polling keeps reaching the provider on every following tick.
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("In Progress", nil), nil).Times(2)
		s.tick(m)
		s.tick(m)
		s.False(m.State().Status.Terminal())
	})
}

// =============================================================================
// Session Ceiling
// =============================================================================

func (s *PollerSuite) TestSessionCeiling() {
	s.Run("session expires at the hard ceiling without a provider call", func() {
		s.startActive()
		s.clock.Advance(5 * time.Minute)

		s.tick(s.manager)

		st := s.manager.State()
		s.Equal(StatusExpired, st.Status)
		s.Equal(dErrors.CodeSessionExpired, st.ErrorCode)
		s.NotEmpty(s.errMessages)
	})

	s.Run("ceiling fires even while the breaker is open", func() {
		cfg := s.testConfig()
		cfg.ErrorThreshold = 100
		m := s.newManager(WithConfig(cfg))
		s.expectCreateSession()
		_, err := m.StartVerification(context.Background(), validApplicant())
		s.Require().NoError(err)

		serverErr := dErrors.New(dErrors.CodeServerError, "El servicio de verificación no está disponible.")
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(nil, serverErr).Times(5)
		for i := 0; i < 5; i++ {
			s.tick(m)
		}
		s.True(m.breaker.IsOpen())

		s.clock.Advance(5 * time.Minute)
		s.tick(m)
		s.Equal(StatusExpired, m.State().Status)
	})
}

// =============================================================================
// Terminal Outcomes
// =============================================================================

func (s *PollerSuite) TestTerminalOutcomes() {
	s.Run("approved decision completes the attempt and fires the callback", func() {
		s.startActive()
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("Approved", approvedDecision()), nil)

		s.tick(s.manager)

		st := s.manager.State()
		s.Equal(StatusCompleted, st.Status)
		s.Equal(100, st.Progress)
		s.Empty(st.Error)

		s.Require().Len(s.completions, 1)
		done := s.completions[0]
		s.Equal(testSessionID, done.SessionID)
		s.True(done.Verdict.Compliant)
		s.Equal(100, done.Verdict.Score)
		s.True(done.Summary.IsFullyVerified)
	})

	s.Run("completion callback waits for the configured delay", func() {
		cfg := s.testConfig()
		cfg.CompletionDelay = 20 * time.Millisecond
		var mu sync.Mutex
		var fired bool
		m := s.newManager(WithConfig(cfg), WithCallbacks(Callbacks{
			OnComplete: func(CompletionData) {
				mu.Lock()
				fired = true
				mu.Unlock()
			},
		}))
		s.expectCreateSession()
		_, err := m.StartVerification(context.Background(), validApplicant())
		s.Require().NoError(err)

		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("Approved", approvedDecision()), nil)
		s.tick(m)

		mu.Lock()
		early := fired
		mu.Unlock()
		s.False(early)

		s.Eventually(func() bool {
			mu.Lock()
			defer mu.Unlock()
			return fired
		}, time.Second, 5*time.Millisecond)
	})

	s.Run("declined decision fails the attempt", func() {
		s.startActive()
		d := approvedDecision()
		d.Overall = "declined"
		d.IDVerification.Status = provider.CheckDeclined
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("Declined", d), nil)

		s.tick(s.manager)

		st := s.manager.State()
		s.Equal(StatusFailed, st.Status)
		s.Equal(dErrors.CodeComplianceViolation, st.ErrorCode)
		s.Contains(st.Error, "rechazada")
		s.Empty(s.completions)
	})

	s.Run("provider-side expiry maps to expired", func() {
		s.startActive()
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("KYC Expired", nil), nil)

		s.tick(s.manager)
		s.Equal(StatusExpired, s.manager.State().Status)
	})

	s.Run("non-compliant approval still completes with a failing verdict", func() {
		s.startActive()
		d := approvedDecision()
		d.AML = &provider.AMLResult{Status: provider.AMLHit, Risk: provider.RiskHigh, Hits: 2}
		s.gateway.EXPECT().GetSessionDecision(gomock.Any(), testSessionID).
			Return(s.status("Approved", d), nil)

		s.tick(s.manager)

		s.Equal(StatusCompleted, s.manager.State().Status)
		s.Require().Len(s.completions, 1)
		s.False(s.completions[0].Verdict.Compliant)
		s.NotEmpty(s.completions[0].Verdict.Reasons)
	})
}

// =============================================================================
// Stale Results
// =============================================================================

func (s *PollerSuite) TestStaleTicks() {
	s.Run("tick scheduled for a cancelled attempt is dropped", func() {
		s.startActive()
		s.manager.mu.Lock()
		gen := s.manager.generation
		s.manager.mu.Unlock()

		s.gateway.EXPECT().CancelSession(gomock.Any(), testSessionID).Return(nil)
		_, err := s.manager.CancelVerification(context.Background())
		s.Require().NoError(err)

		// The stale tick must not call the provider or disturb idle state.
		s.manager.pollOnce(context.Background(), gen)
		s.Equal(StatusIdle, s.manager.State().Status)
	})

	s.Run("webhook for an unknown session is rejected", func() {
		s.startActive()
		_, err := s.manager.HandleProviderUpdate(context.Background(), "other-session", "Approved", nil)
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})

	s.Run("webhook on the live session completes it", func() {
		s.startActive()
		st, err := s.manager.HandleProviderUpdate(context.Background(), testSessionID, "Approved", approvedDecision())
		s.Require().NoError(err)
		s.Equal(StatusCompleted, st.Status)
	})
}
