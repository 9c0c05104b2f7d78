package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEngine(opts ...Option) *Engine {
	return NewEngine(testLogger(), opts...)
}

func chain(nodes ...*models.WorkflowNode) *models.Workflow {
	return testutil.CreateTestWorkflow(testutil.WithChain(nodes...))
}

func startNode() *models.WorkflowNode {
	return testutil.CreateTestNode(models.StartData{}, testutil.WithID("start"))
}

func endNode() *models.WorkflowNode {
	return testutil.CreateTestNode(models.EndData{}, testutil.WithID("end"))
}

func assertOrderedLog(t *testing.T, execution *models.WorkflowExecution) {
	t.Helper()

	require.NotEmpty(t, execution.ExecutionLog)
	assert.Equal(t, models.NodeTypeStart, execution.ExecutionLog[0].NodeType)

	for i := 1; i < len(execution.ExecutionLog); i++ {
		assert.False(t,
			execution.ExecutionLog[i].Timestamp.Before(execution.ExecutionLog[i-1].Timestamp),
			"entry %d is older than its predecessor", i)
	}
}

func TestEngine_SimpleApprovalTemplate(t *testing.T) {
	t.Parallel()

	tmpl, ok := TemplateByID("simple-approval")
	require.True(t, ok)

	wf := tmpl.Instantiate("manager", time.Now())
	booking := testutil.CreateTestBooking()
	mutator := &testutil.RecordingMutator{}

	execution := newTestEngine().Execute(context.Background(), wf, booking, mutator, nil)

	require.Equal(t, models.ExecutionStatusCompleted, execution.Status, execution.Error)
	assert.Len(t, execution.ExecutionLog, 6)
	assertOrderedLog(t, execution)
	assert.NotNil(t, execution.CompletedAt)
	assert.Equal(t, wf.ID, execution.WorkflowID)
	assert.Equal(t, booking.ID, execution.BookingID)
	require.NotNil(t, execution.CurrentNodeID)
	assert.Equal(t, "end", *execution.CurrentNodeID)

	last := execution.ExecutionLog[len(execution.ExecutionLog)-1]
	assert.Equal(t, models.NodeTypeEnd, last.NodeType)
	assert.Equal(t, "Workflow completed", last.Action)

	for _, entry := range execution.ExecutionLog {
		assert.Equal(t, models.LogResultSuccess, entry.Result)
	}

	require.Len(t, mutator.StatusCalls, 1)
	assert.Equal(t, models.BookingStatusConfirmed, mutator.StatusCalls[0].Status)
	assert.Equal(t, models.WorkflowActor, mutator.StatusCalls[0].UpdatedBy)
	assert.Equal(t, models.OriginAutomation, mutator.StatusCalls[0].Origin)
	assert.Contains(t, mutator.StatusCalls[0].Note, "Simple Approval")

	require.Len(t, mutator.Notifications, 2)

	for _, notification := range mutator.Notifications {
		assert.Equal(t, models.ChannelEmail, notification.Channel)
		assert.Equal(t, "ana@example.com", notification.Recipient)
		assert.Equal(t, "workflow:"+wf.ID, notification.TriggerTag)
	}

	assert.Equal(t, "Hi Ana Silva, we received your booking for Clubhouse.", mutator.Notifications[0].Message)
	assert.Equal(t, "Your booking "+booking.ID+" for Clubhouse is confirmed.", mutator.Notifications[1].Message)

	assert.Equal(t, models.BookingStatusPending, booking.Status, "caller's booking must not be mutated")
}

func TestEngine_StartNodeRequirement(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		workflow   *models.Workflow
		wantErr    error
		wantNodeID string
	}{
		{
			name: "no start node",
			workflow: chain(
				testutil.CreateTestNode(models.StatusData{Status: models.BookingStatusConfirmed}, testutil.WithID("status")),
				endNode(),
			),
			wantErr:    models.ErrNoStartNode,
			wantNodeID: "",
		},
		{
			name: "two start nodes",
			workflow: chain(
				startNode(),
				testutil.CreateTestNode(models.StartData{}, testutil.WithID("start-2")),
				testutil.CreateTestNode(models.StatusData{Status: models.BookingStatusConfirmed}, testutil.WithID("status")),
				endNode(),
			),
			wantErr: models.ErrMultipleStartNodes,
		},
		{
			name: "dangling edge",
			workflow: func() *models.Workflow {
				wf := chain(
					startNode(),
					testutil.CreateTestNode(models.StatusData{Status: models.BookingStatusConfirmed}, testutil.WithID("status")),
				)
				wf.Edges = append(wf.Edges, testutil.CreateTestEdge("status", "ghost"))

				return wf
			}(),
			wantErr:    models.ErrDanglingEdge,
			wantNodeID: "start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mutator := &testutil.RecordingMutator{}

			execution := newTestEngine().Execute(context.Background(), tt.workflow, testutil.CreateTestBooking(), mutator, nil)

			assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
			require.Len(t, execution.ExecutionLog, 1)
			assert.Equal(t, models.NodeTypeStart, execution.ExecutionLog[0].NodeType)
			assert.Equal(t, models.LogResultFailure, execution.ExecutionLog[0].Result)
			assert.Contains(t, execution.Error, tt.wantErr.Error())
			assert.Zero(t, mutator.Calls())

			if tt.wantNodeID != "" || tt.wantErr == models.ErrNoStartNode {
				assert.Equal(t, tt.wantNodeID, execution.ExecutionLog[0].NodeID)
			}
		})
	}
}

func TestEngine_StatusNodeSideEffect(t *testing.T) {
	t.Parallel()

	wf := testutil.CreateStatusWorkflow(models.BookingStatusConfirmed)
	mutator := &testutil.RecordingMutator{}

	execution := newTestEngine().Execute(context.Background(), wf, testutil.CreateTestBooking(), mutator, nil)

	require.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, mutator.StatusCalls, 1)
	assert.Equal(t, models.BookingStatusConfirmed, mutator.StatusCalls[0].Status)
	assert.Equal(t, "Changed status to confirmed", execution.ExecutionLog[1].Action)
}

func TestEngine_StopsWithoutOutgoingEdge(t *testing.T) {
	t.Parallel()

	wf := chain(
		startNode(),
		testutil.CreateTestNode(models.StatusData{Status: models.BookingStatusCancelled}, testutil.WithID("status")),
	)

	execution := newTestEngine().Execute(context.Background(), wf, testutil.CreateTestBooking(), &testutil.RecordingMutator{}, nil)

	require.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.ExecutionLog, 3)

	closing := execution.ExecutionLog[2]
	assert.Equal(t, "status", closing.NodeID)
	assert.Equal(t, "Workflow completed", closing.Action)
}

func TestEngine_NotificationFanOut(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		target         models.NotificationTarget
		user           models.BookingUser
		wantChannels   []models.NotificationChannel
		wantRecipients []string
	}{
		{
			name:           "both channels email first",
			target:         models.NotifyBoth,
			user:           models.BookingUser{Name: "Ana", Email: "ana@example.com", Phone: "+15550100"},
			wantChannels:   []models.NotificationChannel{models.ChannelEmail, models.ChannelSMS},
			wantRecipients: []string{"ana@example.com", "+15550100"},
		},
		{
			name:           "sms only",
			target:         models.NotifySMS,
			user:           models.BookingUser{Name: "Ana", Email: "ana@example.com", Phone: "+15550100"},
			wantChannels:   []models.NotificationChannel{models.ChannelSMS},
			wantRecipients: []string{"+15550100"},
		},
		{
			name:           "sms falls back to name",
			target:         models.NotifySMS,
			user:           models.BookingUser{Name: "Ana", Email: "ana@example.com"},
			wantChannels:   []models.NotificationChannel{models.ChannelSMS},
			wantRecipients: []string{"Ana"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wf := chain(
				startNode(),
				testutil.CreateTestNode(models.NotificationData{NotificationType: tt.target, Message: "Hello {{userName}}"}, testutil.WithID("notify")),
				endNode(),
			)
			booking := testutil.CreateTestBooking(func(b *models.Booking) { b.User = tt.user })
			mutator := &testutil.RecordingMutator{}

			execution := newTestEngine().Execute(context.Background(), wf, booking, mutator, nil)

			require.Equal(t, models.ExecutionStatusCompleted, execution.Status, execution.Error)
			require.Len(t, mutator.Notifications, len(tt.wantChannels))

			for i, notification := range mutator.Notifications {
				assert.Equal(t, tt.wantChannels[i], notification.Channel)
				assert.Equal(t, tt.wantRecipients[i], notification.Recipient)
				assert.Equal(t, "Hello "+tt.user.Name, notification.Message)
			}
		})
	}
}

func TestEngine_SemanticErrorsFailFast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		node      *models.WorkflowNode
		booking   *models.Booking
		wantError string
	}{
		{
			name:      "unknown target status",
			node:      testutil.CreateTestNode(models.StatusData{Status: "archived"}, testutil.WithID("bad")),
			booking:   testutil.CreateTestBooking(),
			wantError: models.ErrInvalidStatus.Error(),
		},
		{
			name:      "unknown notification type",
			node:      testutil.CreateTestNode(models.NotificationData{NotificationType: "pager", Message: "hi"}, testutil.WithID("bad")),
			booking:   testutil.CreateTestBooking(),
			wantError: ErrInvalidNodeConfig.Error(),
		},
		{
			name:      "empty message",
			node:      testutil.CreateTestNode(models.NotificationData{NotificationType: models.NotifyEmail, Message: "  "}, testutil.WithID("bad")),
			booking:   testutil.CreateTestBooking(),
			wantError: "empty notification message",
		},
		{
			name: "no recipient",
			node: testutil.CreateTestNode(models.NotificationData{NotificationType: models.NotifyEmail, Message: "hi"}, testutil.WithID("bad")),
			booking: testutil.CreateTestBooking(func(b *models.Booking) {
				b.User = models.BookingUser{}
			}),
			wantError: ErrRecipientMissing.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wf := chain(startNode(), tt.node, endNode())
			mutator := &testutil.RecordingMutator{}

			execution := newTestEngine().Execute(context.Background(), wf, tt.booking, mutator, nil)

			assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
			assert.Contains(t, execution.Error, tt.wantError)
			assert.Zero(t, mutator.Calls())

			last := execution.ExecutionLog[len(execution.ExecutionLog)-1]
			assert.Equal(t, "bad", last.NodeID)
			assert.Equal(t, models.LogResultFailure, last.Result)
			require.NotNil(t, execution.CurrentNodeID)
			assert.Equal(t, "bad", *execution.CurrentNodeID)
		})
	}
}

func TestEngine_RejectsMisconfiguredNodesBeforeSideEffects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		node      *models.WorkflowNode
		wantError string
	}{
		{
			name:      "unknown placeholder",
			node:      testutil.CreateTestNode(models.NotificationData{NotificationType: models.NotifyEmail, Message: "Hi {{userName}}, reply to {{userEmail}}"}, testutil.WithID("bad")),
			wantError: `function "userEmail" not defined`,
		},
		{
			name:      "missing notification type",
			node:      testutil.CreateTestNode(models.NotificationData{Message: "Hi"}, testutil.WithID("bad")),
			wantError: ErrInvalidNodeConfig.Error(),
		},
		{
			name:      "unknown status after a valid one",
			node:      testutil.CreateTestNode(&models.StatusData{Status: "archived"}, testutil.WithID("bad")),
			wantError: models.ErrInvalidStatus.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wf := chain(
				startNode(),
				testutil.CreateTestNode(models.StatusData{Status: models.BookingStatusConfirmed}, testutil.WithID("confirm")),
				tt.node,
				endNode(),
			)
			mutator := &testutil.RecordingMutator{}

			execution := newTestEngine().Execute(context.Background(), wf, testutil.CreateTestBooking(), mutator, nil)

			assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
			assert.Contains(t, execution.Error, tt.wantError)
			assert.Zero(t, mutator.Calls())

			require.Len(t, execution.ExecutionLog, 1)
			assert.Equal(t, "bad", execution.ExecutionLog[0].NodeID)
			assert.Equal(t, models.LogResultFailure, execution.ExecutionLog[0].Result)
		})
	}
}

func TestEngine_PointerNodeData(t *testing.T) {
	t.Parallel()

	wf := chain(
		testutil.CreateTestNode(&models.StartData{Label: "Begin"}, testutil.WithID("start")),
		testutil.CreateTestNode(&models.StatusData{Status: models.BookingStatusConfirmed}, testutil.WithID("confirm")),
		&models.WorkflowNode{ID: "end", Type: models.NodeTypeEnd, Data: (*models.EndData)(nil)},
	)
	require.NoError(t, wf.Validate())

	mutator := &testutil.RecordingMutator{}

	execution := newTestEngine().Execute(context.Background(), wf, testutil.CreateTestBooking(), mutator, nil)

	require.Equal(t, models.ExecutionStatusCompleted, execution.Status, execution.Error)
	require.Len(t, execution.ExecutionLog, 3)
	assert.Equal(t, "Changed status to confirmed", execution.ExecutionLog[1].Action)
	assert.Equal(t, "Reached End", execution.ExecutionLog[2].Details)
	assert.Equal(t, 1, mutator.Calls())
}

func TestEngine_MutatorErrorHaltsWithoutRollback(t *testing.T) {
	t.Parallel()

	wf := chain(
		startNode(),
		testutil.CreateTestNode(models.StatusData{Status: models.BookingStatusConfirmed}, testutil.WithID("status")),
		testutil.CreateTestNode(models.NotificationData{NotificationType: models.NotifyEmail, Message: "hi"}, testutil.WithID("notify")),
		endNode(),
	)
	mutator := &testutil.RecordingMutator{NotifyErr: errors.New("smtp down")}

	execution := newTestEngine().Execute(context.Background(), wf, testutil.CreateTestBooking(), mutator, nil)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, "smtp down")
	assert.Len(t, mutator.StatusCalls, 1)
	assert.Len(t, execution.ExecutionLog, 3)
}

type panickingMutator struct {
	testutil.RecordingMutator
}

func (p *panickingMutator) UpdateBookingStatus(context.Context, string, models.BookingStatus, string, string, models.MutationOrigin) error {
	panic("store exploded")
}

func TestEngine_RecoversNodePanics(t *testing.T) {
	t.Parallel()

	wf := testutil.CreateStatusWorkflow(models.BookingStatusConfirmed)

	execution := newTestEngine().Execute(context.Background(), wf, testutil.CreateTestBooking(), &panickingMutator{}, nil)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, ErrNodePanicked.Error())
	assert.Contains(t, execution.Error, "store exploded")
}

func TestEngine_IterationLimit(t *testing.T) {
	t.Parallel()

	wf := chain(
		startNode(),
		testutil.CreateTestNode(models.ApprovalData{}, testutil.WithID("a")),
		testutil.CreateTestNode(models.ApprovalData{}, testutil.WithID("b")),
	)
	wf.Edges = append(wf.Edges, testutil.CreateTestEdge("b", "a"))

	execution := newTestEngine(WithMaxIterations(10)).Execute(context.Background(), wf, testutil.CreateTestBooking(), &testutil.RecordingMutator{}, nil)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, ErrIterationLimit.Error())
	require.Len(t, execution.ExecutionLog, 11)

	last := execution.ExecutionLog[10]
	assert.Equal(t, "Iteration limit exceeded", last.Action)
	assert.Equal(t, models.LogResultFailure, last.Result)
}

func TestEngine_DefaultIterationLimit(t *testing.T) {
	t.Parallel()

	wf := chain(
		startNode(),
		testutil.CreateTestNode(models.ApprovalData{}, testutil.WithID("loop")),
	)
	wf.Edges = append(wf.Edges, testutil.CreateTestEdge("loop", "loop"))

	execution := newTestEngine().Execute(context.Background(), wf, testutil.CreateTestBooking(), &testutil.RecordingMutator{}, nil)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Len(t, execution.ExecutionLog, DefaultMaxIterations+1)
}

func TestEngine_Cancellation(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before start", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		mutator := &testutil.RecordingMutator{}
		wf := testutil.CreateStatusWorkflow(models.BookingStatusConfirmed)

		execution := newTestEngine().Execute(ctx, wf, testutil.CreateTestBooking(), mutator, nil)

		assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
		assert.Contains(t, execution.Error, ErrExecutionCancelled.Error())
		assert.Equal(t, "Execution cancelled", execution.ExecutionLog[0].Action)
		assert.Zero(t, mutator.Calls())
	})

	t.Run("cancelled during step delay", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		mutator := &testutil.RecordingMutator{}
		wf := testutil.CreateStatusWorkflow(models.BookingStatusConfirmed)

		started := time.Now()
		execution := newTestEngine(WithStepDelay(time.Hour)).Execute(ctx, wf, testutil.CreateTestBooking(), mutator, nil)

		assert.Less(t, time.Since(started), 10*time.Second)
		assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
		assert.Len(t, execution.ExecutionLog, 2)
		assert.Zero(t, mutator.Calls())
	})
}

func TestEngine_Observer(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		snapshots []*models.WorkflowExecution
	)

	observer := func(execution *models.WorkflowExecution) {
		mu.Lock()
		defer mu.Unlock()

		snapshots = append(snapshots, execution)
	}

	tmpl, _ := TemplateByID("simple-approval")
	wf := tmpl.Instantiate("manager", time.Now())

	execution := newTestEngine().Execute(context.Background(), wf, testutil.CreateTestBooking(), &testutil.RecordingMutator{}, observer)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(snapshots) == 6
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	for i, snapshot := range snapshots {
		assert.Len(t, snapshot.ExecutionLog, i+1)
	}

	assert.Equal(t, models.ExecutionStatusRunning, snapshots[0].Status)
	assert.Equal(t, models.ExecutionStatusCompleted, snapshots[5].Status)
	assert.Equal(t, execution.ID, snapshots[5].ID)

	snapshots[0].ExecutionLog[0].Action = "tampered"
	assert.Equal(t, "Workflow started", execution.ExecutionLog[0].Action)
}

func TestEngine_BlockedObserverDoesNotHoldExecute(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	delivered := make(chan models.ExecutionStatus, observerBuffer)

	observer := func(execution *models.WorkflowExecution) {
		<-release
		delivered <- execution.Status
	}

	wf := testutil.CreateStatusWorkflow(models.BookingStatusConfirmed)
	mutator := &testutil.RecordingMutator{}

	finished := make(chan *models.WorkflowExecution, 1)

	go func() {
		finished <- newTestEngine().Execute(context.Background(), wf, testutil.CreateTestBooking(), mutator, observer)
	}()

	var execution *models.WorkflowExecution
	select {
	case execution = <-finished:
	case <-time.After(time.Second):
		close(release)
		t.Fatal("Execute waited for a blocked observer")
	}

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	assert.Equal(t, 1, mutator.Calls())

	close(release)

	var last models.ExecutionStatus
	for range 3 {
		select {
		case last = <-delivered:
		case <-time.After(time.Second):
			t.Fatal("queued snapshots were not delivered after release")
		}
	}

	assert.Equal(t, models.ExecutionStatusCompleted, last)
}

func TestEngine_ObserverPanicDoesNotFailRun(t *testing.T) {
	t.Parallel()

	wf := testutil.CreateStatusWorkflow(models.BookingStatusConfirmed)

	execution := newTestEngine().Execute(context.Background(), wf, testutil.CreateTestBooking(), &testutil.RecordingMutator{},
		func(*models.WorkflowExecution) { panic("ui crashed") })

	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
}

func TestEngine_BranchModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		mode         BranchMode
		duration     time.Duration
		wantStatuses int
		wantApproval bool
	}{
		{name: "first edge ignores duration", mode: BranchFirstEdge, duration: 2 * time.Hour, wantStatuses: 0, wantApproval: true},
		{name: "evaluate long booking", mode: BranchEvaluate, duration: 6 * time.Hour, wantStatuses: 0, wantApproval: true},
		{name: "evaluate short booking", mode: BranchEvaluate, duration: 2 * time.Hour, wantStatuses: 1, wantApproval: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpl, ok := TemplateByID("duration-check")
			require.True(t, ok)

			wf := tmpl.Instantiate("manager", time.Now())
			mutator := &testutil.RecordingMutator{}
			booking := testutil.CreateTestBooking(testutil.WithDuration(tt.duration))

			execution := newTestEngine(WithBranchMode(tt.mode)).Execute(context.Background(), wf, booking, mutator, nil)

			require.Equal(t, models.ExecutionStatusCompleted, execution.Status, execution.Error)
			assert.Len(t, mutator.StatusCalls, tt.wantStatuses)

			visitedApproval := false

			for _, entry := range execution.ExecutionLog {
				if entry.NodeID == "approval" {
					visitedApproval = true
				}
			}

			assert.Equal(t, tt.wantApproval, visitedApproval)
		})
	}
}

func TestEngine_BranchEvaluateFalseWithSingleEdge(t *testing.T) {
	t.Parallel()

	wf := chain(
		startNode(),
		testutil.CreateTestNode(models.ConditionData{Condition: "pending", Field: "status", Operator: "equals", Value: "confirmed"}, testutil.WithID("cond")),
		endNode(),
	)

	execution := newTestEngine(WithBranchMode(BranchEvaluate)).Execute(context.Background(), wf, testutil.CreateTestBooking(), &testutil.RecordingMutator{}, nil)

	require.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.ExecutionLog, 3)
	assert.Equal(t, "cond", execution.ExecutionLog[2].NodeID)
}

func TestEngine_ConditionErrorFailsRun(t *testing.T) {
	t.Parallel()

	wf := chain(
		startNode(),
		testutil.CreateTestNode(models.ConditionData{Expression: "status ==="}, testutil.WithID("cond")),
		endNode(),
	)

	execution := newTestEngine(WithBranchMode(BranchEvaluate)).Execute(context.Background(), wf, testutil.CreateTestBooking(), &testutil.RecordingMutator{}, nil)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, ErrConditionEvaluation.Error())
}

func TestEngine_DeterministicClockAndIDs(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string { return "exec-1" }),
	)

	execution := engine.Execute(context.Background(), testutil.CreateStatusWorkflow(models.BookingStatusConfirmed),
		testutil.CreateTestBooking(), &testutil.RecordingMutator{}, nil)

	assert.Equal(t, "exec-1", execution.ID)
	assert.Equal(t, fixed, execution.StartedAt)
	require.NotNil(t, execution.CompletedAt)
	assert.Equal(t, fixed, *execution.CompletedAt)
}

func TestParseBranchMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseBranchMode("")
	require.NoError(t, err)
	assert.Equal(t, BranchFirstEdge, mode)

	mode, err = ParseBranchMode("evaluate")
	require.NoError(t, err)
	assert.Equal(t, BranchEvaluate, mode)

	_, err = ParseBranchMode("random")
	assert.Error(t, err)
}
