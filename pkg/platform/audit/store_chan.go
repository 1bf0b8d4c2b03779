package audit

import (
	"context"
	"errors"
)

// ErrInboxFull is returned when the channel store's buffer is saturated.
var ErrInboxFull = errors.New("audit inbox full")

// ChannelStore is the producer side of the async audit pipeline: Append
// enqueues without blocking and the worker drains the channel into a real
// store. When the buffer is full the event is dropped with an error so
// fail-open publishers can count it and fail-closed publishers can refuse.
type ChannelStore struct {
	inbox chan Event
}

func NewChannelStore(buffer int) *ChannelStore {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelStore{inbox: make(chan Event, buffer)}
}

// Inbox exposes the receive side for the draining worker.
func (s *ChannelStore) Inbox() <-chan Event {
	return s.inbox
}

func (s *ChannelStore) Append(_ context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		return ErrInboxFull
	}
}

// ListBySession is not supported; reads go to the draining store.
func (s *ChannelStore) ListBySession(context.Context, string) ([]Event, error) {
	return nil, errors.New("channel store does not support reads")
}

// ListRecent is not supported; reads go to the draining store.
func (s *ChannelStore) ListRecent(context.Context, int) ([]Event, error) {
	return nil, errors.New("channel store does not support reads")
}
