package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "kyc-gateway/pkg/platform/audit"
)

func TestInMemoryStore_AppendAndListBySession(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, audit.Event{SessionID: "s-1", Action: "verification_started"}))
	require.NoError(t, store.Append(ctx, audit.Event{SessionID: "s-2", Action: "verification_started"}))
	require.NoError(t, store.Append(ctx, audit.Event{SessionID: "s-1", Action: "verification_completed"}))

	events, err := store.ListBySession(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "verification_started", events[0].Action)
	assert.Equal(t, "verification_completed", events[1].Action)
}

func TestInMemoryStore_ListRecent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for _, action := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(ctx, audit.Event{Action: action}))
	}

	events, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[0].Action)
	assert.Equal(t, "c", events[1].Action)
}

func TestInMemoryStore_Clear(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, audit.Event{SessionID: "s-1", Action: "a"}))
	store.Clear()

	events, err := store.ListBySession(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, events)
}
