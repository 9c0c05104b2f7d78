package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/residentdesk/facilityflow/pkg/bookings"
	"github.com/residentdesk/facilityflow/pkg/executions/memory"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/persistence"
	"github.com/residentdesk/facilityflow/pkg/persistence/file"
	"github.com/residentdesk/facilityflow/pkg/testutil"
	"github.com/residentdesk/facilityflow/pkg/workflow"
	"github.com/stretchr/testify/require"
)

type testStack struct {
	persistence    persistence.Persistence
	bookingStore   *bookings.Store
	executionStore *memory.Store
	workflows      *Workflow
	executions     *Executions
	bookings       *Bookings
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStack(t *testing.T, opts ...BookingsOption) *testStack {
	t.Helper()

	return newTestStackWith(t, file.NewPersistence(t.TempDir()), nil, opts...)
}

func newTestStackWith(
	t *testing.T,
	store persistence.Persistence,
	executionOpts []ExecutionsOption,
	opts ...BookingsOption,
) *testStack {
	t.Helper()

	logger := testLogger()
	engine := workflow.NewEngine(logger)
	bookingStore := bookings.NewStore()
	executionStore := memory.NewStore()

	executionService := NewExecutions(executionStore, store, bookingStore, engine, logger, executionOpts...)
	triggers := workflow.NewTriggerManager(engine, logger)

	return &testStack{
		persistence:    store,
		bookingStore:   bookingStore,
		executionStore: executionStore,
		workflows:      NewWorkflow(store, logger),
		executions:     executionService,
		bookings:       NewBookings(bookingStore, store, triggers, executionService, logger, opts...),
	}
}

func (s *testStack) saveWorkflow(t *testing.T, wf *models.Workflow) *models.Workflow {
	t.Helper()

	created, err := s.workflows.Create(context.Background(), wf)
	require.NoError(t, err)

	return created
}

// conditionChain builds start -> condition(text) -> rest... -> end.
func conditionChain(id, condition string, rest ...*models.WorkflowNode) *models.Workflow {
	nodes := []*models.WorkflowNode{
		testutil.CreateTestNode(models.StartData{}, testutil.WithID("start")),
		testutil.CreateTestNode(models.ConditionData{Condition: condition}, testutil.WithID("cond")),
	}
	nodes = append(nodes, rest...)
	nodes = append(nodes, testutil.CreateTestNode(models.EndData{}, testutil.WithID("end")))

	return testutil.CreateTestWorkflow(testutil.WithWorkflowID(id), testutil.WithChain(nodes...))
}
