package services

import (
	"context"
	"testing"
	"time"

	"github.com/residentdesk/facilityflow/pkg/events"
	"github.com/residentdesk/facilityflow/pkg/executions"
	"github.com/residentdesk/facilityflow/pkg/mocks"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/persistence/file"
	"github.com/residentdesk/facilityflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExecutions_Run(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()

	wf := stack.saveWorkflow(t, testutil.CreateStatusWorkflow(models.BookingStatusConfirmed))

	booking, err := stack.bookingStore.Create(ctx, testutil.CreateTestBooking())
	require.NoError(t, err)

	execution, err := stack.executions.Run(ctx, wf.ID, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, wf.ID, execution.WorkflowID)
	assert.Equal(t, booking.ID, execution.BookingID)
	require.NotNil(t, execution.CompletedAt)

	updated, err := stack.bookingStore.BookingByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, updated.Status)
	require.Len(t, updated.StatusHistory, 1)
	assert.Equal(t, models.WorkflowActor, updated.StatusHistory[0].UpdatedBy)
	assert.Equal(t, models.OriginAutomation, updated.StatusHistory[0].Origin)

	stored, err := stack.executions.ByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)

	list, err := stack.executions.List(ctx, executions.Filter{BookingID: booking.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestExecutions_RunRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		inactive  bool
		bookingID string
		check     func(t *testing.T, err error)
	}{
		{
			name:      "blank booking id",
			bookingID: "  ",
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrBookingIDRequired)
				assert.True(t, IsValidationError(err))
			},
		},
		{
			name:      "unknown booking",
			bookingID: "BK-MISSING",
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrBookingNotFound)
				assert.True(t, IsNotFoundError(err))
			},
		},
		{
			name:      "inactive workflow",
			inactive:  true,
			bookingID: "BK-1",
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrWorkflowInactive)
				assert.True(t, IsConflictError(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stack := newTestStack(t)
			ctx := context.Background()

			wf := stack.saveWorkflow(t, testutil.CreateStatusWorkflow(models.BookingStatusConfirmed,
				testutil.WithActive(!tt.inactive)))

			_, err := stack.bookingStore.Create(ctx, testutil.CreateTestBooking(func(b *models.Booking) {
				b.ID = "BK-1"
			}))
			require.NoError(t, err)

			_, err = stack.executions.Run(ctx, wf.ID, tt.bookingID)
			require.Error(t, err)
			tt.check(t, err)

			list, err := stack.executions.List(ctx, executions.Filter{})
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestExecutions_RunUnknownWorkflow(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()

	booking, err := stack.bookingStore.Create(ctx, testutil.CreateTestBooking())
	require.NoError(t, err)

	_, err = stack.executions.Run(ctx, "wf-missing", booking.ID)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestExecutions_PublishesFinishedEvent(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "BK-1", mock.AnythingOfType("*events.BookingStatusChanged")).
		Return(nil).Once()
	bus.On("Publish", mock.Anything, "BK-1", mock.AnythingOfType("*events.WorkflowExecutionCompleted")).
		Return(nil).Once()

	stack := newTestStackWith(t, file.NewPersistence(t.TempDir()), []ExecutionsOption{WithExecutionEvents(bus)})
	ctx := context.Background()

	wf := stack.saveWorkflow(t, testutil.CreateStatusWorkflow(models.BookingStatusConfirmed))

	_, err := stack.bookingStore.Create(ctx, testutil.CreateTestBooking(func(b *models.Booking) {
		b.ID = "BK-1"
	}))
	require.NoError(t, err)

	execution, err := stack.executions.Run(ctx, wf.ID, "BK-1")
	require.NoError(t, err)

	bus.AssertExpectations(t)
	require.Len(t, bus.Calls, 2)

	changed := bus.Calls[0].Arguments.Get(2).(*events.BookingStatusChanged)
	assert.Equal(t, models.BookingStatusPending, changed.OldStatus)
	assert.Equal(t, models.BookingStatusConfirmed, changed.NewStatus)
	assert.Equal(t, models.OriginAutomation, changed.Origin)
	assert.Equal(t, models.WorkflowActor, changed.UpdatedBy)

	published := bus.Calls[1].Arguments.Get(2).(*events.WorkflowExecutionCompleted)
	assert.Equal(t, execution.ID, published.ExecutionID)
	assert.Equal(t, wf.ID, published.WorkflowID)
}

func TestExecutions_LateSnapshotKeepsFinalRecord(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()

	running := models.NewExecution("exec-1", "wf-1", "Workflow", "BK-1", time.Now())
	stack.executions.ObserveStep(running)

	finished := running.Snapshot()
	finished.Complete(time.Now())
	stack.executions.OnExecutionCreated(ctx, finished)

	stack.executions.ObserveStep(running)

	stored, err := stack.executions.ByID(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
}

func TestExecutions_ObserveStepSkipsTerminal(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()

	running := models.NewExecution("exec-running", "wf-1", "Workflow", "BK-1", time.Now())
	stack.executions.ObserveStep(running)

	stored, err := stack.executions.ByID(ctx, "exec-running")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, stored.Status)

	finished := models.NewExecution("exec-finished", "wf-1", "Workflow", "BK-1", time.Now())
	finished.Status = models.ExecutionStatusCompleted
	stack.executions.ObserveStep(finished)

	_, err = stack.executions.ByID(ctx, "exec-finished")
	require.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestExecutions_Prune(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	stack.executions.now = func() time.Time { return now }

	finished := func(id string, completedAt time.Time) *models.WorkflowExecution {
		execution := models.NewExecution(id, "wf-1", "Workflow", "BK-1", completedAt.Add(-time.Minute))
		execution.Status = models.ExecutionStatusCompleted
		execution.CompletedAt = &completedAt

		return execution
	}

	stack.executions.OnExecutionCreated(ctx, finished("old", now.Add(-48*time.Hour)))
	stack.executions.OnExecutionCreated(ctx, finished("recent", now.Add(-time.Hour)))
	stack.executions.OnExecutionCreated(ctx, models.NewExecution("running", "wf-1", "Workflow", "BK-1", now.Add(-72*time.Hour)))

	removed, err := stack.executions.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	list, err := stack.executions.List(ctx, executions.Filter{})
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, execution := range list {
		ids = append(ids, execution.ID)
	}

	assert.ElementsMatch(t, []string{"recent", "running"}, ids)
}

func TestExecutions_HealthCheck(t *testing.T) {
	t.Parallel()

	stack := newTestStack(t)

	message, ok := stack.executions.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Execution store is healthy", message)
}
