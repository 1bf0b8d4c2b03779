package verification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"kyc-gateway/internal/provider"
	vmetrics "kyc-gateway/internal/verification/metrics"
	"kyc-gateway/internal/verification/monitor"
	dErrors "kyc-gateway/pkg/domain-errors"
	compliancepub "kyc-gateway/pkg/platform/audit/publishers/compliance"
	opspub "kyc-gateway/pkg/platform/audit/publishers/ops"
)

// Service is the registry of per-registration Managers. Managers are created
// on the first StartVerification for a registration and live until Shutdown;
// webhook payloads are routed to the owning manager by provider session ID.
type Service struct {
	gateway    provider.Gateway
	presenter  Presenter
	monitor    *monitor.Service
	compliance *compliancepub.Publisher
	ops        *opspub.Publisher
	logger     *slog.Logger
	metrics    *vmetrics.Metrics
	cfg        Config
	callbacks  func(registrationID string) Callbacks

	mu       sync.Mutex
	managers map[string]*Manager
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func ServiceWithPresenter(p Presenter) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.presenter = p
		}
	}
}

func ServiceWithMonitor(svc *monitor.Service) ServiceOption {
	return func(s *Service) { s.monitor = svc }
}

func ServiceWithPublishers(compliance *compliancepub.Publisher, ops *opspub.Publisher) ServiceOption {
	return func(s *Service) {
		s.compliance = compliance
		s.ops = ops
	}
}

func ServiceWithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func ServiceWithMetrics(m *vmetrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// ServiceWithCallbacks installs a per-registration callback factory, invoked
// once when the registration's manager is created.
func ServiceWithCallbacks(factory func(registrationID string) Callbacks) ServiceOption {
	return func(s *Service) { s.callbacks = factory }
}

func NewService(gateway provider.Gateway, cfg Config, opts ...ServiceOption) (*Service, error) {
	if gateway == nil {
		return nil, fmt.Errorf("verification: provider gateway is required")
	}
	s := &Service{
		gateway:   gateway,
		presenter: ManualPresenter{},
		logger:    slog.Default(),
		cfg:       cfg.withDefaults(),
		managers:  make(map[string]*Manager),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// manager returns the Manager for a registration, creating it on demand.
func (s *Service) manager(registrationID string) (*Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.managers[registrationID]; ok {
		return m, nil
	}

	opts := []Option{
		WithConfig(s.cfg),
		WithPresenter(s.presenter),
		WithMonitor(s.monitor),
		WithCompliancePublisher(s.compliance),
		WithOpsPublisher(s.ops),
		WithLogger(s.logger.With("registration_id", registrationID)),
		WithMetrics(s.metrics),
	}
	if s.callbacks != nil {
		opts = append(opts, WithCallbacks(s.callbacks(registrationID)))
	}
	m, err := NewManager(registrationID, s.gateway, opts...)
	if err != nil {
		return nil, err
	}
	s.managers[registrationID] = m
	return m, nil
}

// existing returns the registration's manager or a not-found domain error.
func (s *Service) existing(registrationID string) (*Manager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.managers[registrationID]; ok {
		return m, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound,
		"No existe una verificación para este registro.")
}

func (s *Service) Start(ctx context.Context, registrationID string, applicant ApplicantData) (State, error) {
	if registrationID == "" {
		return State{}, dErrors.New(dErrors.CodeBadRequest, "El identificador de registro es obligatorio.")
	}
	m, err := s.manager(registrationID)
	if err != nil {
		return State{}, err
	}
	return m.StartVerification(ctx, applicant)
}

func (s *Service) Retry(ctx context.Context, registrationID string) (State, error) {
	m, err := s.existing(registrationID)
	if err != nil {
		return State{}, err
	}
	return m.RetryVerification(ctx)
}

func (s *Service) Cancel(ctx context.Context, registrationID string) (State, error) {
	m, err := s.existing(registrationID)
	if err != nil {
		return State{}, err
	}
	return m.CancelVerification(ctx)
}

func (s *Service) Reset(ctx context.Context, registrationID string) (State, error) {
	m, err := s.existing(registrationID)
	if err != nil {
		return State{}, err
	}
	return m.ResetVerification(ctx)
}

func (s *Service) Status(ctx context.Context, registrationID string) (State, error) {
	m, err := s.existing(registrationID)
	if err != nil {
		return State{}, err
	}
	return m.State(), nil
}

func (s *Service) CheckStatus(ctx context.Context, registrationID string) (State, error) {
	m, err := s.existing(registrationID)
	if err != nil {
		return State{}, err
	}
	return m.CheckStatus(ctx)
}

func (s *Service) ReportSuspicious(ctx context.Context, registrationID string, activity monitor.Activity) (State, error) {
	m, err := s.existing(registrationID)
	if err != nil {
		return State{}, err
	}
	return m.ReportSuspiciousActivity(ctx, activity)
}

// HandleWebhook routes a verified provider payload to the owning manager.
// VendorData carries our registration ID when the provider echoes it back;
// otherwise the session ID is matched against live managers.
func (s *Service) HandleWebhook(ctx context.Context, payload provider.WebhookPayload) (State, error) {
	if payload.VendorData != "" {
		if m, err := s.existing(payload.VendorData); err == nil {
			return m.HandleProviderUpdate(ctx, payload.SessionID, payload.Status, payload.Decision)
		}
	}

	s.mu.Lock()
	var target *Manager
	for _, m := range s.managers {
		m.mu.Lock()
		live := m.session != nil && m.session.SessionID == payload.SessionID
		m.mu.Unlock()
		if live {
			target = m
			break
		}
	}
	s.mu.Unlock()

	if target == nil {
		return State{}, dErrors.New(dErrors.CodeNotFound, "La sesión de verificación no existe.")
	}
	return target.HandleProviderUpdate(ctx, payload.SessionID, payload.Status, payload.Decision)
}

// Shutdown cancels every live attempt's poller. Provider sessions are left
// to expire on their own; the managers' state is in-memory only.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	managers := make([]*Manager, 0, len(s.managers))
	for _, m := range s.managers {
		managers = append(managers, m)
	}
	s.mu.Unlock()

	for _, m := range managers {
		m.mu.Lock()
		m.teardownLocked()
		m.mu.Unlock()
	}
}
