package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention (e.g., 7 years).
	// Examples: verification decisions, compliance verdicts, cancellations.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and
	// forensics. These feed into SIEM systems and alerting pipelines.
	// Examples: suspicious activity reports, rejected webhooks.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	// Examples: routine status transitions, poll outcomes.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the verification core to capture lifecycle actions.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID             string
	Category       EventCategory
	Timestamp      time.Time
	RegistrationID string
	SessionID      string
	Action         string
	PriorStatus    string
	NewStatus      string
	Outcome        string
	Reason         string
	// RequestID is the correlation ID from the HTTP request context when the
	// transition was caused by an inbound call rather than a poll tick.
	RequestID string
	// ActorID tracks who triggered the action when it was not the applicant
	// (e.g. an internal service reporting suspicious activity).
	ActorID string
}

// AuditEvent names a verification lifecycle action.
type AuditEvent string

const (
	EventVerificationStarted   AuditEvent = "verification_started"
	EventProviderSessionOpened AuditEvent = "provider_session_opened"
	EventStatusChanged         AuditEvent = "verification_status_changed"
	EventVerificationCompleted AuditEvent = "verification_completed"
	EventVerificationFailed    AuditEvent = "verification_failed"
	EventVerificationExpired   AuditEvent = "verification_expired"
	EventVerificationCancelled AuditEvent = "verification_cancelled"
	EventVerificationRetried   AuditEvent = "verification_retried"
	EventVerificationReset     AuditEvent = "verification_reset"
	EventDecisionEvaluated     AuditEvent = "decision_evaluated"
	EventSuspiciousActivity    AuditEvent = "suspicious_activity_reported"
	EventWebhookRejected       AuditEvent = "webhook_rejected"
)

// eventCategories maps each audit event to its category. The map is the
// source of truth: stores derive the category from the action on write.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - require tamper-proof storage
	EventVerificationCompleted: CategoryCompliance,
	EventVerificationFailed:    CategoryCompliance,
	EventVerificationExpired:   CategoryCompliance,
	EventVerificationCancelled: CategoryCompliance,
	EventDecisionEvaluated:     CategoryCompliance,

	// Security events - feed into SIEM and alerting
	EventSuspiciousActivity: CategorySecurity,
	EventWebhookRejected:    CategorySecurity,

	// Operations events - routine activity, can be sampled
	EventVerificationStarted:   CategoryOperations,
	EventProviderSessionOpened: CategoryOperations,
	EventStatusChanged:         CategoryOperations,
	EventVerificationRetried:   CategoryOperations,
	EventVerificationReset:     CategoryOperations,
}

// Category returns the event's category, defaulting to operations for
// unknown actions so new events never silently gain compliance retention.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
