package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kyc-gateway/pkg/platform/audit"
	auditmem "kyc-gateway/pkg/platform/audit/store/memory"
)

func TestWorkerDrainsInboxIntoStore(t *testing.T) {
	inbox := audit.NewChannelStore(8)
	sink := auditmem.NewInMemoryStore()
	w := New(sink, inbox.Inbox(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, inbox.Append(context.Background(), audit.Event{
			ID:     "ev",
			Action: string(audit.EventStatusChanged),
		}))
	}

	assert.Eventually(t, func() bool {
		events, err := sink.ListRecent(context.Background(), 10)
		return err == nil && len(events) == 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestChannelStoreRejectsWhenFull(t *testing.T) {
	inbox := audit.NewChannelStore(1)
	require.NoError(t, inbox.Append(context.Background(), audit.Event{}))
	err := inbox.Append(context.Background(), audit.Event{})
	assert.ErrorIs(t, err, audit.ErrInboxFull)
}
