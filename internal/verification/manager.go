package verification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"kyc-gateway/internal/provider"
	vmetrics "kyc-gateway/internal/verification/metrics"
	"kyc-gateway/internal/verification/monitor"
	dErrors "kyc-gateway/pkg/domain-errors"
	"kyc-gateway/pkg/platform/audit"
	compliancepub "kyc-gateway/pkg/platform/audit/publishers/compliance"
	opspub "kyc-gateway/pkg/platform/audit/publishers/ops"
	"kyc-gateway/pkg/platform/circuit"
	"kyc-gateway/pkg/platform/schedule"
	"kyc-gateway/pkg/requestcontext"
)

// rapidRetryWindow: a retry this soon after the previous attempt ended is
// flagged to the suspicious activity monitor.
const rapidRetryWindow = 10 * time.Second

// Manager drives one registration's verification attempts through the state
// machine. All state lives behind a single mutex; provider calls happen
// outside the lock and their results are discarded when a cancel, reset, or
// retry invalidated the attempt in the meantime (generation counter).
type Manager struct {
	registrationID string

	gateway    provider.Gateway
	presenter  Presenter
	monitor    *monitor.Service
	compliance *compliancepub.Publisher
	ops        *opspub.Publisher
	logger     *slog.Logger
	metrics    *vmetrics.Metrics
	callbacks  Callbacks
	cfg        Config
	now        func() time.Time

	mu         sync.Mutex
	state      State
	applicant  ApplicantData
	session    *Session
	breaker    *circuit.Breaker
	task       *schedule.Task
	generation uint64

	notFoundCount   int
	errorCount      int
	completionTimer *time.Timer
}

// Option configures a Manager.
type Option func(*Manager)

func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

func WithPresenter(p Presenter) Option {
	return func(m *Manager) {
		if p != nil {
			m.presenter = p
		}
	}
}

func WithMonitor(svc *monitor.Service) Option {
	return func(m *Manager) { m.monitor = svc }
}

func WithCallbacks(cb Callbacks) Option {
	return func(m *Manager) { m.callbacks = cb }
}

func WithCompliancePublisher(p *compliancepub.Publisher) Option {
	return func(m *Manager) { m.compliance = p }
}

func WithOpsPublisher(p *opspub.Publisher) Option {
	return func(m *Manager) { m.ops = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(mx *vmetrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mx }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(registrationID string, gateway provider.Gateway, opts ...Option) (*Manager, error) {
	if registrationID == "" {
		return nil, fmt.Errorf("verification: registration id is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("verification: provider gateway is required")
	}

	m := &Manager{
		registrationID: registrationID,
		gateway:        gateway,
		presenter:      ManualPresenter{},
		logger:         slog.Default(),
		now:            time.Now,
		state:          State{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cfg = m.cfg.withDefaults()
	// The breaker is per attempt; retry and reset replace it so one flaky
	// session never poisons the next.
	m.breaker = m.newBreaker()
	return m, nil
}

func (m *Manager) newBreaker() *circuit.Breaker {
	return circuit.New(
		circuit.WithFailureThreshold(m.cfg.BreakerThreshold),
		circuit.WithCooldown(m.cfg.BreakerCooldown),
		circuit.WithClock(m.now),
	)
}

// RegistrationID returns the registration this manager belongs to.
func (m *Manager) RegistrationID() string {
	return m.registrationID
}

// State returns a consistent snapshot of the current attempt.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	s := m.state
	if s.Status.Active() && s.StartedAt != nil {
		remaining := m.cfg.SessionTimeout - m.now().Sub(*s.StartedAt)
		if remaining < 0 {
			remaining = 0
		}
		s.EstimatedSecondsRemaining = int(remaining / time.Second)
	}
	return s
}

// sessionKeyLocked is the monitor key: session ID once one exists, otherwise
// the registration ID so pre-session abuse is still counted.
func (m *Manager) sessionKeyLocked() string {
	if m.session != nil {
		return m.session.SessionID
	}
	return m.registrationID
}

// StartVerification validates the applicant data and opens a provider
// session. Invalid data fails the attempt locally; the provider is never
// contacted. Returns the state after the session is created (or the attempt
// failed).
func (m *Manager) StartVerification(ctx context.Context, applicant ApplicantData) (State, error) {
	m.mu.Lock()
	if m.state.Status != StatusIdle {
		st := m.snapshotLocked()
		m.mu.Unlock()
		return st, dErrors.New(dErrors.CodeInvalidState,
			"Ya existe una verificación en curso para este registro.")
	}
	notify := m.startLocked(ctx, applicant)
	st := m.snapshotLocked()
	err := m.state.attemptError()
	m.mu.Unlock()

	m.flush(notify)
	if err != nil {
		return st, err
	}
	return st, nil
}

// attemptError rebuilds the domain error for a failed attempt, so Start and
// Retry can both return the same error they surfaced through callbacks.
func (s State) attemptError() error {
	if s.Status != StatusFailed && s.Status != StatusExpired {
		return nil
	}
	if s.Error == "" {
		return nil
	}
	return dErrors.New(s.ErrorCode, s.Error)
}

// startLocked runs the shared start path for both StartVerification and
// RetryVerification. Caller holds the lock; the returned closures run after
// unlock.
func (m *Manager) startLocked(ctx context.Context, applicant ApplicantData) []func() {
	var notify []func()

	applicant = applicant.Normalize()
	if err := applicant.Validate(); err != nil {
		// No provider call is made for invalid data.
		notify = append(notify, m.transitionLocked(ctx, StatusFailed, func(s *State) {
			s.Error = dErrors.MessageOf(err)
			s.ErrorCode = dErrors.CodeOf(err)
			now := m.now()
			s.CompletedAt = &now
		})...)
		notify = append(notify, m.auditLocked(ctx, audit.EventVerificationFailed, "invalid_data", dErrors.MessageOf(err)))
		return notify
	}

	m.applicant = applicant
	started := m.now()
	m.state.StartedAt = &started
	notify = append(notify, m.transitionLocked(ctx, StatusInitiating, nil)...)
	notify = append(notify, m.auditLocked(ctx, audit.EventVerificationStarted, "ok", ""))

	gen := m.generation
	req := provider.CreateSessionRequest{
		WorkflowID:  m.cfg.WorkflowID,
		CallbackURL: m.cfg.CallbackURL,
		VendorData:  m.registrationID,
		ExpectedDetails: provider.ExpectedDetails{
			FirstName:      applicant.FirstName,
			LastName:       applicant.LastName,
			DocumentNumber: applicant.DocumentNumber,
			DateOfBirth:    applicant.DateOfBirth,
		},
		ContactDetails: provider.ContactDetails{
			Email: applicant.Email,
			Phone: applicant.Phone,
		},
	}

	// Provider round trip happens outside the lock; a cancel or reset in the
	// meantime bumps the generation and the result is dropped.
	m.mu.Unlock()
	sess, err := m.gateway.CreateSession(ctx, req)
	var opened bool
	if err == nil {
		opened, _ = m.presenter.Present(ctx, m.registrationID, sess.VerificationURL)
	}
	m.mu.Lock()

	if m.generation != gen {
		if err == nil {
			// The attempt was torn down while the session was being created;
			// close the orphan at the provider.
			m.cancelProviderSession(sess.SessionID)
		}
		return notify
	}

	if err != nil {
		m.metrics.RecordProviderError(string(dErrors.CodeOf(err)))
		notify = append(notify, m.transitionLocked(ctx, StatusFailed, func(s *State) {
			s.Error = dErrors.MessageOf(err)
			s.ErrorCode = dErrors.CodeOf(err)
			now := m.now()
			s.CompletedAt = &now
		})...)
		notify = append(notify, m.auditLocked(ctx, audit.EventVerificationFailed, "provider_error", dErrors.MessageOf(err)))
		return notify
	}

	m.session = &Session{
		SessionID:       sess.SessionID,
		SessionNumber:   sess.SessionNumber,
		VerificationURL: sess.VerificationURL,
		CreatedAt:       m.now(),
	}
	notify = append(notify, m.transitionLocked(ctx, StatusSessionCreated, func(s *State) {
		s.SessionID = sess.SessionID
		s.SessionNumber = sess.SessionNumber
		s.VerificationURL = sess.VerificationURL
	})...)
	notify = append(notify, m.auditLocked(ctx, audit.EventProviderSessionOpened, "ok", ""))

	next := StatusManualVerification
	if opened {
		next = StatusUserVerifying
	}
	notify = append(notify, m.transitionLocked(ctx, next, nil)...)

	// Bot traffic starting verification sessions is flagged right away.
	if ua := requestcontext.UserAgent(ctx); ua != "" && m.monitor != nil {
		key := m.sessionKeyLocked()
		notify = append(notify, func() {
			if _, err := m.monitor.InspectUserAgent(context.WithoutCancel(ctx), key, ua); err != nil {
				m.logger.ErrorContext(ctx, "inspecting user agent", "error", err)
			}
		})
	}

	m.metrics.SessionStarted()
	m.startPollingLocked()
	return notify
}

// RetryVerification starts a fresh attempt after a failure or expiry,
// reusing the applicant data from the original start.
func (m *Manager) RetryVerification(ctx context.Context) (State, error) {
	m.mu.Lock()
	if !m.state.Status.Retriable() {
		st := m.snapshotLocked()
		m.mu.Unlock()
		return st, dErrors.New(dErrors.CodeInvalidState,
			"Solo es posible reintentar una verificación fallida o expirada.")
	}
	if m.state.RetryCount >= m.cfg.MaxRetries {
		st := m.snapshotLocked()
		m.mu.Unlock()
		return st, dErrors.New(dErrors.CodeRateLimited,
			"Se alcanzó el número máximo de intentos de verificación. Contacte a soporte.")
	}

	var notify []func()
	if m.state.CompletedAt != nil && m.now().Sub(*m.state.CompletedAt) < rapidRetryWindow {
		notify = append(notify, m.reportActivityLocked(ctx, monitor.Activity{
			Type:     monitor.ActivityRapidRetry,
			Severity: monitor.SeverityLow,
			Details:  "retry inmediatamente después del intento anterior",
		}))
	}

	applicant := m.applicant
	retries := m.state.RetryCount + 1
	suspicious := m.state.SuspiciousCount
	m.teardownLocked()
	m.state = State{Status: StatusIdle, RetryCount: retries, SuspiciousCount: suspicious}
	notify = append(notify, m.auditLocked(ctx, audit.EventVerificationRetried, "ok", fmt.Sprintf("intento %d", retries)))

	notify = append(notify, m.startLocked(ctx, applicant)...)
	st := m.snapshotLocked()
	err := m.state.attemptError()
	m.mu.Unlock()

	m.flush(notify)
	return st, err
}

// CancelVerification aborts the current attempt and returns the manager to
// idle. The provider session, when one exists, is cancelled best effort.
func (m *Manager) CancelVerification(ctx context.Context) (State, error) {
	m.mu.Lock()
	if m.state.Status.Terminal() {
		st := m.snapshotLocked()
		m.mu.Unlock()
		return st, dErrors.New(dErrors.CodeInvalidState,
			"La verificación ya finalizó y no puede cancelarse.")
	}

	var notify []func()
	if m.session != nil {
		sessionID := m.session.SessionID
		notify = append(notify, func() { m.cancelProviderSession(sessionID) })
	}
	retries := m.state.RetryCount
	wasActive := m.state.Status.Active()
	m.teardownLocked()
	m.state = State{Status: StatusIdle, RetryCount: retries}
	if wasActive {
		m.metrics.SessionEnded()
	}
	notify = append(notify, m.auditLocked(ctx, audit.EventVerificationCancelled, "ok", ""))
	st := m.snapshotLocked()
	m.mu.Unlock()

	m.flush(notify)
	return st, nil
}

// ResetVerification discards everything, including the retry budget and the
// suspicious activity count. Idempotent from any state.
func (m *Manager) ResetVerification(ctx context.Context) (State, error) {
	m.mu.Lock()
	var notify []func()
	if m.session != nil && !m.state.Status.Terminal() {
		sessionID := m.session.SessionID
		notify = append(notify, func() { m.cancelProviderSession(sessionID) })
	}
	if m.monitor != nil {
		key := m.sessionKeyLocked()
		notify = append(notify, func() {
			if err := m.monitor.Clear(context.WithoutCancel(ctx), key); err != nil {
				m.logger.ErrorContext(ctx, "clearing suspicious activity", "error", err, "session_key", key)
			}
		})
	}
	wasActive := m.state.Status.Active()
	m.teardownLocked()
	m.state = State{Status: StatusIdle}
	m.applicant = ApplicantData{}
	if wasActive {
		m.metrics.SessionEnded()
	}
	notify = append(notify, m.auditLocked(ctx, audit.EventVerificationReset, "ok", ""))
	st := m.snapshotLocked()
	m.mu.Unlock()

	m.flush(notify)
	return st, nil
}

// CheckStatus runs one on-demand poll of the provider, outside the regular
// cadence, and returns the resulting state. On an inactive attempt it just
// returns the snapshot.
func (m *Manager) CheckStatus(ctx context.Context) (State, error) {
	m.mu.Lock()
	active := m.state.Status.Active()
	gen := m.generation
	m.mu.Unlock()

	if active {
		m.pollOnce(ctx, gen)
	}
	return m.State(), nil
}

// ReportSuspiciousActivity records one flagged event. Once the monitor's
// threshold is exceeded the attempt is failed immediately, regardless of
// what the provider would have decided.
func (m *Manager) ReportSuspiciousActivity(ctx context.Context, activity monitor.Activity) (State, error) {
	if m.monitor == nil {
		return m.State(), dErrors.New(dErrors.CodeInternal,
			"El monitoreo de actividad no está disponible.")
	}
	m.mu.Lock()
	key := m.sessionKeyLocked()
	m.mu.Unlock()

	exceeded, count, err := m.monitor.Report(ctx, key, activity)
	if err != nil {
		return m.State(), err
	}
	m.metrics.RecordSuspicious()

	m.mu.Lock()
	m.state.SuspiciousCount = count
	var notify []func()
	notify = append(notify, m.auditLocked(ctx, audit.EventSuspiciousActivity, string(activity.Severity),
		fmt.Sprintf("%s (%d/%d)", activity.Type, count, m.monitor.Threshold())))

	if exceeded && !m.state.Status.Terminal() {
		wasActive := m.state.Status.Active()
		m.teardownLocked()
		notify = append(notify, m.transitionLocked(ctx, StatusFailed, func(s *State) {
			s.Error = "Actividad sospechosa detectada. La verificación fue bloqueada por seguridad."
			s.ErrorCode = dErrors.CodeSuspiciousActivity
			now := m.now()
			s.CompletedAt = &now
		})...)
		notify = append(notify, m.auditLocked(ctx, audit.EventVerificationFailed, "suspicious_activity", ""))
		if wasActive {
			m.metrics.SessionEnded()
		}
	}
	st := m.snapshotLocked()
	m.mu.Unlock()

	m.flush(notify)
	return st, nil
}

// teardownLocked stops polling, invalidates in-flight provider calls and any
// pending completion timer, and discards the session handle.
func (m *Manager) teardownLocked() {
	m.generation++
	if m.task != nil {
		m.task.Stop()
		m.task = nil
	}
	if m.completionTimer != nil {
		m.completionTimer.Stop()
		m.completionTimer = nil
	}
	m.session = nil
	m.notFoundCount = 0
	m.errorCount = 0
	m.breaker = m.newBreaker()
}

func (m *Manager) startPollingLocked() {
	gen := m.generation
	m.task = schedule.NewTask(m.cfg.PollInterval, func(ctx context.Context) {
		m.pollOnce(ctx, gen)
	})
	m.task.Start(context.Background())
}

// transitionLocked applies a state transition and returns the notification
// closures to run after unlock. mutate, when non-nil, runs with the lock
// held after the status and progress floor are applied.
func (m *Manager) transitionLocked(ctx context.Context, next Status, mutate func(*State)) []func() {
	prior := m.state.Status
	m.state.Status = next
	if floor := progressFloorFor(next); floor > m.state.Progress {
		m.state.Progress = floor
	}
	if next == StatusIdle || next == StatusInitiating {
		m.state.Progress = progressFloorFor(next)
	}
	if mutate != nil {
		mutate(&m.state)
	}
	m.metrics.RecordTransition(string(prior), string(next))

	snapshot := m.snapshotLocked()
	var notify []func()
	if cb := m.callbacks.OnStatusChange; cb != nil && prior != next {
		notify = append(notify, func() { cb(prior, next, snapshot) })
	}
	if next.Terminal() && next != StatusCompleted {
		if cb := m.callbacks.OnError; cb != nil && snapshot.Error != "" {
			msg, code := snapshot.Error, snapshot.ErrorCode
			notify = append(notify, func() { cb(msg, code) })
		}
	}
	event := m.newEventLocked(ctx, audit.EventStatusChanged, string(next), "")
	event.PriorStatus = string(prior)
	notify = append(notify, m.emit(ctx, event))
	return notify
}

// auditLocked builds the deferred emit for one audit event. Compliance
// category events go through the fail-closed publisher; a persistence
// failure there is logged at error level but never blocks the lifecycle,
// the applicant's outcome is provider-authoritative.
func (m *Manager) auditLocked(ctx context.Context, action audit.AuditEvent, outcome, reason string) func() {
	return m.emit(ctx, m.newEventLocked(ctx, action, outcome, reason))
}

func (m *Manager) newEventLocked(ctx context.Context, action audit.AuditEvent, outcome, reason string) audit.Event {
	return audit.Event{
		ID:             uuid.NewString(),
		Category:       action.Category(),
		Timestamp:      m.now(),
		RegistrationID: m.registrationID,
		SessionID:      m.state.SessionID,
		Action:         string(action),
		NewStatus:      string(m.state.Status),
		Outcome:        outcome,
		Reason:         reason,
		RequestID:      requestcontext.RequestID(ctx),
		ActorID:        requestcontext.UserID(ctx),
	}
}

func (m *Manager) emit(ctx context.Context, event audit.Event) func() {
	return func() {
		// Detach from request cancellation; the trail outlives the caller.
		ectx := context.WithoutCancel(ctx)
		if event.Category == audit.CategoryCompliance || event.Category == audit.CategorySecurity {
			if m.compliance != nil {
				if err := m.compliance.Emit(ectx, event); err != nil {
					m.logger.ErrorContext(ctx, "compliance audit emit failed",
						"error", err, "action", event.Action, "registration_id", m.registrationID)
				}
				return
			}
		}
		if m.ops != nil {
			m.ops.Emit(ectx, event)
		}
	}
}

func (m *Manager) reportActivityLocked(ctx context.Context, activity monitor.Activity) func() {
	key := m.sessionKeyLocked()
	return func() {
		if m.monitor == nil {
			return
		}
		if _, _, err := m.monitor.Report(context.WithoutCancel(ctx), key, activity); err != nil {
			m.logger.ErrorContext(ctx, "recording suspicious activity", "error", err, "session_key", key)
		} else {
			m.metrics.RecordSuspicious()
		}
	}
}

// cancelProviderSession fires a best-effort cancel; failures are logged only.
func (m *Manager) cancelProviderSession(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.gateway.CancelSession(ctx, sessionID); err != nil {
		m.logger.Error("cancelling provider session", "error", err, "provider_session_id", sessionID)
	}
}

func (m *Manager) flush(notify []func()) {
	for _, fn := range notify {
		fn()
	}
}
