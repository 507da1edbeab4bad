package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway/clearway/pkg/events"
	"github.com/clearway/clearway/pkg/notify"
	"github.com/clearway/clearway/pkg/testutil"
)

func TestEventSinkPublishesNotification(t *testing.T) {
	publisher := testutil.NewCapturePublisher()
	sink := notify.NewEventSink(publisher)

	err := sink.Notify(t.Context(), &notify.Notification{
		RequestID: "req-1",
		TaskID:    "task-1",
		Recipient: "owner@example.com",
		Channel:   notify.ChannelEmail,
		Kind:      notify.KindSLABreach,
		Message:   "SLA clock elapsed",
	})
	require.NoError(t, err)

	published := publisher.OfType(events.NotificationSentEvent)
	require.Len(t, published, 1)

	sent, ok := published[0].(events.NotificationSent)
	require.True(t, ok)
	assert.Equal(t, "req-1", sent.RequestID)
	assert.Equal(t, "task-1", sent.TaskID)
	assert.Equal(t, "owner@example.com", sent.Recipient)
	assert.Equal(t, notify.ChannelEmail, sent.Channel)
	assert.Equal(t, notify.KindSLABreach, sent.Kind)
	assert.NotEmpty(t, sent.ID)
}
