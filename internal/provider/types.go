// Package provider implements the gateway to the external identity
// verification service: session creation, decision fetch, cancellation, and
// webhook signature verification. It owns endpoint URLs, credentials, and the
// HTTP error taxonomy; callers never see raw provider payloads or statuses
// without schema validation.
package provider

// CreateSessionRequest carries the applicant details the provider matches
// the captured document against.
type CreateSessionRequest struct {
	WorkflowID  string          `json:"workflow_id"`
	CallbackURL string          `json:"callback,omitempty"`
	// VendorData carries our registration ID so webhook payloads can be
	// correlated back to the originating attempt.
	VendorData      string          `json:"vendor_data,omitempty"`
	ExpectedDetails ExpectedDetails `json:"expected_details"`
	ContactDetails  ContactDetails  `json:"contact_details"`
}

// ExpectedDetails is the subset of applicant data the provider cross-checks
// against the captured identity document.
type ExpectedDetails struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DocumentNumber string `json:"document_number"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
}

// ContactDetails is where the provider sends its own applicant notifications.
type ContactDetails struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Session is the provider's handle for one verification attempt.
type Session struct {
	SessionID       string `json:"session_id"`
	SessionNumber   int64  `json:"session_number"`
	VerificationURL string `json:"url"`
	Status          string `json:"status"`
}

// SessionStatus is the provider's current view of a session, including the
// structured decision once one exists.
type SessionStatus struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	Decision  *Decision `json:"decision,omitempty"`
}

// Decision is the raw provider-reported outcome for a session. Sub-checks the
// provider did not run are nil.
type Decision struct {
	// Overall classification: approved, declined, review, abandoned, error.
	Overall        string       `json:"overall"`
	IDVerification *CheckResult `json:"id_verification,omitempty"`
	FaceMatch      *CheckResult `json:"face_match,omitempty"`
	Liveness       *CheckResult `json:"liveness,omitempty"`
	AML            *AMLResult   `json:"aml,omitempty"`
	Warnings       []string     `json:"warnings,omitempty"`
}

// CheckResult is one verification facet with its provider status and an
// optional confidence score (0-100; nil when the provider reported none).
type CheckResult struct {
	Status     string   `json:"status"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// AMLResult is the anti-money-laundering screening outcome.
type AMLResult struct {
	// Status: clear, possible_match, hit.
	Status string `json:"status"`
	// Risk: low, medium, high. Empty when status is clear.
	Risk string `json:"risk,omitempty"`
	Hits int    `json:"total_hits,omitempty"`
}

// WebhookPayload is the body the provider POSTs to our callback URL.
type WebhookPayload struct {
	SessionID  string    `json:"session_id"`
	Status     string    `json:"status"`
	VendorData string    `json:"vendor_data,omitempty"`
	Decision   *Decision `json:"decision,omitempty"`
}

// Provider decision sub-check status values used by the compliance scorer.
const (
	CheckApproved = "Approved"
	CheckInReview = "In Review"
	CheckDeclined = "Declined"

	FaceMatchMatch   = "match"
	FaceMatchNoMatch = "no_match"

	LivenessLive    = "live"
	LivenessNotLive = "not_live"

	AMLClear         = "clear"
	AMLPossibleMatch = "possible_match"
	AMLHit           = "hit"

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)
