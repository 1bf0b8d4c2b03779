// Package verification owns the identity-verification session lifecycle: the
// state machine, the status poller, and the coordination between the provider
// gateway, the compliance scorer, the suspicious activity monitor, and the
// audit trail. The registration flow starts sessions here and consumes the
// final decision to unlock the next registration step.
package verification

import (
	"time"

	"kyc-gateway/internal/provider"
	"kyc-gateway/internal/verification/decision"
	dErrors "kyc-gateway/pkg/domain-errors"
)

// Status is the internal lifecycle state of a verification attempt.
type Status string

const (
	StatusIdle               Status = "idle"
	StatusInitiating         Status = "initiating"
	StatusSessionCreated     Status = "session_created"
	StatusUserVerifying      Status = "user_verifying"
	StatusManualVerification Status = "manual_verification"
	StatusProcessing         Status = "processing"
	StatusCompleted          Status = "completed"
	StatusFailed             Status = "failed"
	StatusExpired            Status = "expired"
)

// Terminal reports whether the status ends the attempt. Terminal states are
// only left through an explicit retry, which starts a new attempt.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// Active reports whether the poller should be running in this status.
func (s Status) Active() bool {
	switch s {
	case StatusSessionCreated, StatusUserVerifying, StatusManualVerification, StatusProcessing:
		return true
	}
	return false
}

// Retriable reports whether RetryVerification is permitted from this status.
func (s Status) Retriable() bool {
	return s == StatusFailed || s == StatusExpired
}

// ApplicantData is the professional's identity data supplied by the
// registration flow to start a session.
type ApplicantData struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DocumentNumber string `json:"document_number"`
	LicenseNumber  string `json:"license_number"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
}

// Session identifies one verification attempt at the provider. Owned
// exclusively by the Manager for its lifetime; discarded on reset/cancel.
type Session struct {
	SessionID       string    `json:"session_id"`
	SessionNumber   int64     `json:"session_number"`
	VerificationURL string    `json:"verification_url"`
	CreatedAt       time.Time `json:"created_at"`
}

// State is the single source of truth for one in-flight registration
// attempt. Only the Manager mutates it; every mutation is applied atomically
// and callbacks always observe a consistent snapshot.
type State struct {
	Status Status `json:"status"`
	// Progress is 0-100 and monotonically non-decreasing while a session is
	// active. It is advisory, derived from the provider status vocabulary.
	Progress   int          `json:"progress"`
	Error      string       `json:"error,omitempty"`
	ErrorCode  dErrors.Code `json:"error_code,omitempty"`
	RetryCount int          `json:"retry_count"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// EstimatedSecondsRemaining is the time left before the session timeout
	// forces expiry. Zero when no session is active.
	EstimatedSecondsRemaining int `json:"estimated_seconds_remaining,omitempty"`

	SessionID       string `json:"session_id,omitempty"`
	SessionNumber   int64  `json:"session_number,omitempty"`
	VerificationURL string `json:"verification_url,omitempty"`

	SuspiciousCount int `json:"suspicious_count,omitempty"`
}

// CompletionData is handed to the completion callback exactly once per
// successful session.
type CompletionData struct {
	SessionID string             `json:"session_id"`
	Decision  *provider.Decision `json:"decision,omitempty"`
	Summary   decision.Summary   `json:"summary"`
	Verdict   decision.Verdict   `json:"verdict"`
}

// Callbacks are the outbound notifications to the registration flow. All are
// optional; they fire after the state mutation they describe, never during.
type Callbacks struct {
	// OnComplete fires exactly once per successful session.
	OnComplete func(data CompletionData)
	// OnError fires on any terminal failure with a user-facing Spanish
	// message and a machine-readable kind.
	OnError func(message string, code dErrors.Code)
	// OnStatusChange fires on every state transition.
	OnStatusChange func(prior, next Status, state State)
}

// Config holds the lifecycle and resilience policy knobs for a Manager.
type Config struct {
	WorkflowID  string
	CallbackURL string

	PollInterval   time.Duration
	SessionTimeout time.Duration
	MaxRetries     int
	MinScore       int

	// NotFoundThreshold: consecutive provider 404s tolerated before expiry.
	NotFoundThreshold int
	// ErrorThreshold: consecutive provider failures before a connectivity
	// failure is surfaced.
	ErrorThreshold int

	BreakerThreshold int
	BreakerCooldown  time.Duration

	// CompletionDelay is the user-visible pause between the terminal
	// provider status and the completion callback.
	CompletionDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 5 * time.Minute
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MinScore <= 0 {
		c.MinScore = decision.DefaultMinScore
	}
	if c.NotFoundThreshold <= 0 {
		c.NotFoundThreshold = 10
	}
	if c.ErrorThreshold <= 0 {
		c.ErrorThreshold = 3
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	// CompletionDelay may legitimately be zero (tests, headless callers).
	return c
}
