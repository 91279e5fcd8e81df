package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/flowkite/flowkite/pkg/channels/gochannel"
	"github.com/flowkite/flowkite/pkg/eventbus"
	"github.com/flowkite/flowkite/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan any, 1)
	bus.Handle(events.ExecutionStartedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	})

	require.NoError(t, bus.Subscribe(ctx))

	event := events.ExecutionStarted{
		BaseEvent: events.BaseEvent{
			ID:          "evt-1",
			Type:        events.ExecutionStartedEvent,
			Timestamp:   time.Now().UTC(),
			ExecutionID: "exec-1",
			WorkflowID:  "wf-1",
		},
		Trigger:    "manual",
		TotalSteps: 3,
	}

	require.NoError(t, bus.Publish(ctx, "wf-1", event))

	select {
	case got := <-received:
		started, ok := got.(*events.ExecutionStarted)
		require.True(t, ok)
		assert.Equal(t, "exec-1", started.ExecutionID)
		assert.Equal(t, 3, started.TotalSteps)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_RoomReceivesOnlyItsWorkflow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	room, err := bus.SubscribeRoom(ctx, "wf-1")
	require.NoError(t, err)

	publish := func(workflowID, executionID string) {
		event := events.StepStarted{
			BaseEvent: events.BaseEvent{
				ID:          "evt-" + executionID,
				Type:        events.StepStartedEvent,
				Timestamp:   time.Now().UTC(),
				ExecutionID: executionID,
				WorkflowID:  workflowID,
			},
		}
		require.NoError(t, bus.Publish(ctx, workflowID, event))
	}

	publish("wf-2", "exec-other")
	publish("wf-1", "exec-mine")

	select {
	case got := <-room:
		started, ok := got.(*events.StepStarted)
		require.True(t, ok)
		assert.Equal(t, "exec-mine", started.ExecutionID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for room event")
	}
}
