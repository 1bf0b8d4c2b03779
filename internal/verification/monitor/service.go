package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mssola/useragent"
)

// Service evaluates suspicious activity against the per-session threshold.
type Service struct {
	store     Store
	threshold int
	logger    *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithThreshold overrides the per-session activity threshold.
func WithThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a monitor service backed by the given store.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("monitor.New: store is required")
	}
	s := &Service{store: store, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Report appends one activity and reports whether the session has crossed
// the threshold. The count includes the event just recorded.
func (s *Service) Report(ctx context.Context, sessionKey string, activity Activity) (exceeded bool, count int, err error) {
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now()
	}
	if activity.Severity == "" {
		activity.Severity = SeverityLow
	}

	count, err = s.store.Append(ctx, sessionKey, activity)
	if err != nil {
		return false, 0, fmt.Errorf("record suspicious activity: %w", err)
	}

	exceeded = count >= s.threshold
	if exceeded && s.logger != nil {
		s.logger.WarnContext(ctx, "suspicious activity threshold exceeded",
			"session_key", sessionKey,
			"count", count,
			"threshold", s.threshold,
			"type", activity.Type,
		)
	}
	return exceeded, count, nil
}

// Count returns the current activity count for the session.
func (s *Service) Count(ctx context.Context, sessionKey string) (int, error) {
	return s.store.Count(ctx, sessionKey)
}

// Clear wipes activity for the session. Called on reset.
func (s *Service) Clear(ctx context.Context, sessionKey string) error {
	return s.store.Clear(ctx, sessionKey)
}

// Threshold returns the configured per-session threshold.
func (s *Service) Threshold() int {
	return s.threshold
}

// InspectUserAgent records an automated-client event when the user agent
// identifies as a bot or crawler. Returns whether the threshold was crossed
// by this event. An empty user agent is itself anomalous for a browser flow.
func (s *Service) InspectUserAgent(ctx context.Context, sessionKey, rawUA string) (bool, error) {
	if rawUA == "" {
		exceeded, _, err := s.Report(ctx, sessionKey, Activity{
			Type:     ActivityAnomalousBehavior,
			Severity: SeverityMedium,
			Details:  "missing user agent",
		})
		return exceeded, err
	}

	ua := useragent.New(rawUA)
	if !ua.Bot() {
		return false, nil
	}
	name, _ := ua.Browser()
	exceeded, _, err := s.Report(ctx, sessionKey, Activity{
		Type:     ActivityAutomatedClient,
		Severity: SeverityHigh,
		Details:  fmt.Sprintf("bot user agent: %s", name),
	})
	return exceeded, err
}
