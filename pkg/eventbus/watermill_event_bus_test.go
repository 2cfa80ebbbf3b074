package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowcanvas/pkg/channels/gochannel"
	"github.com/dukex/flowcanvas/pkg/eventbus"
	"github.com/dukex/flowcanvas/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	received := make(chan *events.WorkflowSaved, 1)

	require.NoError(t, bus.Handle(events.WorkflowSavedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.WorkflowSaved)

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.WorkflowSaved{
		BaseEvent: events.NewBaseEvent(events.WorkflowSavedEvent, "wf-1", "user-1"),
		NodeCount: 4,
		EdgeCount: 3,
	}

	require.NoError(t, bus.Publish(ctx, "wf-1", sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "wf-1", got.WorkflowID)
		assert.Equal(t, 4, got.NodeCount)
		assert.Equal(t, 3, got.EdgeCount)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_UnhandledEventsAreDropped(t *testing.T) {
	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	deleted := make(chan *events.WorkflowDeleted, 1)

	require.NoError(t, bus.Handle(events.WorkflowDeletedEvent, func(_ context.Context, event any) error {
		deleted <- event.(*events.WorkflowDeleted)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	require.NoError(t, bus.Publish(t.Context(), "wf-1", events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, "wf-1", "user-1"),
	}))
	require.NoError(t, bus.Publish(t.Context(), "wf-1", events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, "wf-1", "user-1"),
	}))

	select {
	case got := <-deleted:
		assert.Equal(t, "wf-1", got.WorkflowID)
	case <-time.After(5 * time.Second):
		t.Fatal("deleted event was not delivered after an unhandled one")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
