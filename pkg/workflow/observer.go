package workflow

import (
	"log/slog"
	"sync"

	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/protocol"
)

const observerBuffer = 256

// observerQueue delivers execution snapshots to a step observer on its own
// goroutine so a slow observer never stalls the walk or the caller. Snapshots
// that do not fit the buffer are dropped. close returns at once; whatever is
// still queued is delivered after Execute has returned.
type observerQueue struct {
	snapshots chan *models.WorkflowExecution
	once      sync.Once
	logger    *slog.Logger
}

func newObserverQueue(onStep protocol.StepObserver, logger *slog.Logger) *observerQueue {
	if onStep == nil {
		return nil
	}

	q := &observerQueue{
		snapshots: make(chan *models.WorkflowExecution, observerBuffer),
		logger:    logger,
	}

	go q.deliver(onStep)

	return q
}

func (q *observerQueue) publish(snapshot *models.WorkflowExecution) {
	if q == nil {
		return
	}

	select {
	case q.snapshots <- snapshot:
	default:
		q.logger.Warn("Dropped execution snapshot, observer is too slow", "execution_id", snapshot.ID)
	}
}

func (q *observerQueue) close() {
	if q == nil {
		return
	}

	q.once.Do(func() {
		close(q.snapshots)
	})
}

func (q *observerQueue) deliver(onStep protocol.StepObserver) {
	for snapshot := range q.snapshots {
		q.notify(onStep, snapshot)
	}
}

func (q *observerQueue) notify(onStep protocol.StepObserver, snapshot *models.WorkflowExecution) {
	defer func() {
		if recovered := recover(); recovered != nil {
			q.logger.Error("Step observer panicked", "execution_id", snapshot.ID, "panic", recovered)
		}
	}()

	onStep(snapshot)
}
