package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway/clearway/pkg/events"
	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/notify"
	"github.com/clearway/clearway/pkg/testutil"
)

// A high-priority request past its 24h clock with two outstanding tasks gets
// exactly one breach escalation; the tasks are left alone.
func TestSLABreachEscalatesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	approvedAt := time.Now().UTC().Add(-25 * time.Hour)
	request := testutil.CreateTestRequest(
		testutil.WithStatus(models.RequestStatusInProgress),
		testutil.WithPriority(models.PriorityHigh),
	)
	request.ApprovedAt = &approvedAt

	require.NoError(t, h.persistence.RequestRepository().Save(ctx, request))
	require.NoError(t, h.persistence.TaskRepository().SaveAll(ctx, []*models.WorkflowTask{
		testutil.CreateTestTask(request.ID, testutil.WithTaskName("Task one")),
		testutil.CreateTestTask(request.ID, testutil.WithTaskName("Task two")),
	}))

	sweeper, err := NewSLASweeper(h.engine)
	require.NoError(t, err)

	sweeper.Sweep(ctx)
	sweeper.Sweep(ctx)

	breaches := h.publisher.OfType(events.SLABreachedEvent)
	require.Len(t, breaches, 1)

	event, ok := breaches[0].(events.SLABreached)
	require.True(t, ok)
	assert.Equal(t, models.PriorityHigh, event.Priority)
	assert.Equal(t, 24*time.Hour, event.SLA)
	assert.Equal(t, 2, event.TasksPending)

	assert.Len(t, h.sink.OfKind(notify.KindSLABreach), 1)

	tasks, err := h.persistence.TaskRepository().ListByRequest(ctx, request.ID)
	require.NoError(t, err)

	for _, task := range tasks {
		assert.Equal(t, models.TaskStatusPending, task.Status)
	}
}

func TestSLAWithinClockNoBreach(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	approvedAt := time.Now().UTC().Add(-1 * time.Hour)
	request := testutil.CreateTestRequest(
		testutil.WithStatus(models.RequestStatusInProgress),
		testutil.WithPriority(models.PriorityHigh),
	)
	request.ApprovedAt = &approvedAt

	require.NoError(t, h.persistence.RequestRepository().Save(ctx, request))
	require.NoError(t, h.persistence.TaskRepository().SaveAll(ctx, []*models.WorkflowTask{
		testutil.CreateTestTask(request.ID),
	}))

	sweeper, err := NewSLASweeper(h.engine)
	require.NoError(t, err)

	sweeper.Sweep(ctx)

	assert.Empty(t, h.publisher.OfType(events.SLABreachedEvent))
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	h := newHarness(t)
	h.cfg.Orchestrator.SLASweepSchedule = "not-a-schedule"

	_, err := NewSLASweeper(h.engine)
	require.Error(t, err)
}
