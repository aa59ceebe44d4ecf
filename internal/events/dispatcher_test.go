package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublishInvokesHandlersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var seen []string
	d.Subscribe(EventTicketCalled, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.ID)
		return nil
	})
	d.Subscribe(EventTicketCalled, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.ID)
		return nil
	})
	d.Subscribe(EventTicketIssued, func(_ context.Context, _ Event) error {
		seen = append(seen, "other")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{ID: "e1", Type: EventTicketCalled}))
	assert.Equal(t, []string{"first:e1", "second:e1"}, seen)
}

func TestPublishSwallowsHandlerErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	called := false
	d.Subscribe(EventTicketCalled, func(context.Context, Event) error {
		return errors.New("panel down")
	})
	d.Subscribe(EventTicketCalled, func(context.Context, Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), Event{ID: "e2", Type: EventTicketCalled})
	require.NoError(t, err)
	assert.True(t, called)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "event handler failed", logs.All()[0].Message)
}
