package eventbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway/clearway/pkg/channels/gochannel"
	"github.com/clearway/clearway/pkg/eventbus"
	"github.com/clearway/clearway/pkg/events"
	"github.com/clearway/clearway/pkg/models"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestPublishAndHandleRoundTrip(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu       sync.Mutex
		received []*events.DeploymentFailed
	)

	err := bus.Handle(events.DeploymentFailedEvent, func(_ context.Context, event any) error {
		failed, ok := event.(*events.DeploymentFailed)
		require.True(t, ok)

		mu.Lock()
		received = append(received, failed)
		mu.Unlock()

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	published := events.DeploymentFailed{
		BaseEvent: events.NewBaseEvent(events.DeploymentFailedEvent, "req-1"),
		Track:     models.TrackInfrastructure,
		Reason:    "image rollout failed",
	}
	require.NoError(t, bus.Publish(ctx, "req-1", published))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "req-1", received[0].RequestID)
	assert.Equal(t, models.TrackInfrastructure, received[0].Track)
	assert.Equal(t, "image rollout failed", received[0].Reason)
}

func TestUnhandledEventTypeIsIgnored(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled sync.Map

	err := bus.Handle(events.SLABreachedEvent, func(_ context.Context, _ any) error {
		handled.Store("sla", true)

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	submitted := events.RequestSubmitted{
		BaseEvent: events.NewBaseEvent(events.RequestSubmittedEvent, "req-1"),
	}
	require.NoError(t, bus.Publish(ctx, "req-1", submitted))

	breached := events.SLABreached{
		BaseEvent:    events.NewBaseEvent(events.SLABreachedEvent, "req-1"),
		Priority:     models.PriorityHigh,
		SLA:          24 * time.Hour,
		Elapsed:      25 * time.Hour,
		TasksPending: 2,
	}
	require.NoError(t, bus.Publish(ctx, "req-1", breached))

	require.Eventually(t, func() bool {
		_, ok := handled.Load("sla")

		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGenerateIDIsUnique(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
