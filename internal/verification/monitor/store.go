package monitor

import "context"

// Store persists suspicious activity per session key. Implementations must be
// safe for concurrent use.
type Store interface {
	// Append records one activity and returns the resulting count for the key.
	Append(ctx context.Context, sessionKey string, activity Activity) (int, error)
	// Count returns the number of recorded activities for the key.
	Count(ctx context.Context, sessionKey string) (int, error)
	// Clear removes all activity for the key. Called on session reset.
	Clear(ctx context.Context, sessionKey string) error
}
