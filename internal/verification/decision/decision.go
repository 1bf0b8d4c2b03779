// Package decision turns a raw provider decision payload into a structured
// verification summary and a compliance verdict. This is pure domain logic -
// no I/O, no side effects - so the scoring stays deterministic and auditable.
package decision

// Check names used in summaries, audit records, and metrics labels.
const (
	CheckDocument  = "document"
	CheckFaceMatch = "face_match"
	CheckLiveness  = "liveness"
	CheckAML       = "aml"
)

// Summary is the platform's derived view of a terminal provider decision.
// It is computed once and never stored remotely.
type Summary struct {
	IsFullyVerified   bool     `json:"is_fully_verified"`
	VerificationScore int      `json:"verification_score"`
	CompletedChecks   []string `json:"completed_checks"`
	FailedChecks      []string `json:"failed_checks"`
	Warnings          []string `json:"warnings"`
}

// Verdict is the platform's own pass/fail decision derived from the
// provider's decision plus the minimum score policy. Reasons are returned as
// a list so the registration flow can render actionable guidance.
type Verdict struct {
	Compliant bool     `json:"compliant"`
	Score     int      `json:"score"`
	Reasons   []string `json:"reasons"`
}

// DefaultMinScore is the minimum verification score for compliance unless
// configured otherwise.
const DefaultMinScore = 80

// Sub-check weights. The score is expressed as a percentage of the points
// actually applicable: sub-checks the provider did not return are excluded
// from both numerator and denominator.
const (
	weightDocument  = 40
	weightFaceMatch = 30
	weightLiveness  = 20
	weightAML       = 10
)

// confidenceFloor grants partial credit for face match and liveness when the
// provider reports no categorical pass but high confidence.
const confidenceFloor = 70.0
