package verification

import "strings"

// TerminalKind classifies what a mapped provider status means for the
// attempt's lifetime.
type TerminalKind int

const (
	// TerminalNone keeps the session active and polling.
	TerminalNone TerminalKind = iota
	// TerminalSuccess ends polling; the decision is scored and the attempt
	// completes.
	TerminalSuccess
	// TerminalFailure ends polling with a failed or expired attempt.
	TerminalFailure
)

// MappedStatus is the internal interpretation of one provider status string.
type MappedStatus struct {
	Status        Status
	ProgressFloor int
	Terminal      TerminalKind
	// Recognized is false when the provider sent a status outside the known
	// vocabulary and the fail-safe default was applied.
	Recognized bool
}

// providerStatusTable covers the provider's status vocabulary including the
// KYC-prefixed synonyms some workflow versions emit. Keys are lower-case.
var providerStatusTable = map[string]MappedStatus{
	"not started":     {Status: StatusUserVerifying, ProgressFloor: 25, Terminal: TerminalNone},
	"in progress":     {Status: StatusUserVerifying, ProgressFloor: 40, Terminal: TerminalNone},
	"kyc in progress": {Status: StatusUserVerifying, ProgressFloor: 40, Terminal: TerminalNone},
	"processing":      {Status: StatusProcessing, ProgressFloor: 75, Terminal: TerminalNone},

	"in review":     {Status: StatusCompleted, ProgressFloor: 100, Terminal: TerminalSuccess},
	"kyc in review": {Status: StatusCompleted, ProgressFloor: 100, Terminal: TerminalSuccess},
	"approved":      {Status: StatusCompleted, ProgressFloor: 100, Terminal: TerminalSuccess},
	"kyc approved":  {Status: StatusCompleted, ProgressFloor: 100, Terminal: TerminalSuccess},
	"completed":     {Status: StatusCompleted, ProgressFloor: 100, Terminal: TerminalSuccess},

	"declined":     {Status: StatusFailed, Terminal: TerminalFailure},
	"kyc declined": {Status: StatusFailed, Terminal: TerminalFailure},
	"rejected":     {Status: StatusFailed, Terminal: TerminalFailure},
	"abandoned":    {Status: StatusFailed, Terminal: TerminalFailure},
	"failed":       {Status: StatusFailed, Terminal: TerminalFailure},

	"expired":     {Status: StatusExpired, Terminal: TerminalFailure},
	"kyc expired": {Status: StatusExpired, Terminal: TerminalFailure},
}

// MapProviderStatus translates a raw provider status into the internal
// vocabulary. Unknown statuses fail safe: the session stays in processing
// with no progress bump and keeps polling, so a provider vocabulary change
// never silently completes or kills an attempt.
func MapProviderStatus(raw string) MappedStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	if m, ok := providerStatusTable[key]; ok {
		m.Recognized = true
		return m
	}
	return MappedStatus{Status: StatusProcessing, ProgressFloor: 0, Terminal: TerminalNone}
}

// statusRank orders the non-terminal session states. Provider-driven
// transitions only ever move forward through this order.
func statusRank(s Status) int {
	switch s {
	case StatusIdle:
		return 0
	case StatusInitiating:
		return 1
	case StatusSessionCreated:
		return 2
	case StatusUserVerifying, StatusManualVerification:
		return 3
	case StatusProcessing:
		return 4
	}
	return 5
}

// progressFloorFor returns the advisory progress floor for internally driven
// transitions that have no provider status attached.
func progressFloorFor(s Status) int {
	switch s {
	case StatusInitiating:
		return 5
	case StatusSessionCreated:
		return 10
	case StatusUserVerifying, StatusManualVerification:
		return 25
	case StatusProcessing:
		return 75
	case StatusCompleted:
		return 100
	}
	return 0
}
