// Package monitor accumulates flagged events per verification session and
// forces a hard failure once a threshold is exceeded. Events are append-only;
// the session manager inspects only the running count.
package monitor

import "time"

// ActivityType classifies a suspicious event.
type ActivityType string

const (
	ActivityRapidRetry        ActivityType = "rapid_retry"
	ActivityRepeatedFailure   ActivityType = "repeated_failure"
	ActivityAnomalousBehavior ActivityType = "anomalous_behavior"
	// ActivityAutomatedClient is recorded when the applicant's user agent
	// identifies as a bot or crawler.
	ActivityAutomatedClient ActivityType = "automated_client"
)

// Severity grades a suspicious event.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Activity is one flagged event. Appended, never mutated or removed.
type Activity struct {
	Type      ActivityType `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Severity  Severity     `json:"severity"`
	Details   string       `json:"details,omitempty"`
}

// DefaultThreshold is the per-session event count that forces a hard failure.
const DefaultThreshold = 5
