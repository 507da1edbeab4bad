package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/testutil"
)

func TestQueueKey(t *testing.T) {
	assert.Equal(t, "clearway:track:security", QueueKey(models.TrackSecurity))
	assert.Equal(t, "clearway:track:infrastructure", QueueKey(models.TrackInfrastructure))
}

func TestNewEnvelopeCopiesTaskFields(t *testing.T) {
	task := testutil.CreateTestTask("req-1",
		testutil.WithTrack(models.TrackCompliance),
		testutil.WithDependsOn("dep-1", "dep-2"),
	)
	task.RetryCount = 2

	envelope := NewEnvelope(task)

	assert.Equal(t, task.ID, envelope.TaskID)
	assert.Equal(t, "req-1", envelope.RequestID)
	assert.Equal(t, models.TrackCompliance, envelope.Track)
	assert.Equal(t, []string{"dep-1", "dep-2"}, envelope.DependsOn)
	assert.Equal(t, 2, envelope.RetryCount)
	assert.False(t, envelope.DispatchedAt.IsZero())
}

func TestMemoryDispatcherGroupsByTrack(t *testing.T) {
	dispatcher := NewMemoryDispatcher()
	ctx := context.Background()

	security := testutil.CreateTestTask("req-1", testutil.WithTrack(models.TrackSecurity))
	infra := testutil.CreateTestTask("req-1", testutil.WithTrack(models.TrackInfrastructure))

	require.NoError(t, dispatcher.Dispatch(ctx, security))
	require.NoError(t, dispatcher.Dispatch(ctx, infra))

	securityQueue := dispatcher.Queue(models.TrackSecurity)
	require.Len(t, securityQueue, 1)
	assert.Equal(t, security.ID, securityQueue[0].TaskID)

	assert.Len(t, dispatcher.Queue(models.TrackInfrastructure), 1)
	assert.Empty(t, dispatcher.Queue(models.TrackFinance))
}
