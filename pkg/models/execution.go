package models

import "time"

// ExecutionStatus is the state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// LogResult is the outcome recorded for a log entry.
type LogResult string

const (
	LogResultSuccess LogResult = "success"
	LogResultFailure LogResult = "failure"
)

// ExecutionLogEntry records one step of a run. Entries are immutable once appended.
type ExecutionLogEntry struct {
	NodeID    string    `json:"nodeId"`
	NodeType  NodeType  `json:"nodeType"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Result    LogResult `json:"result"`
	Details   string    `json:"details,omitempty"`
}

// WorkflowExecution is one run of a workflow against one booking.
type WorkflowExecution struct {
	ID            string              `json:"id"`
	WorkflowID    string              `json:"workflowId"`
	WorkflowName  string              `json:"workflowName,omitempty"`
	BookingID     string              `json:"bookingId"`
	Status        ExecutionStatus     `json:"status"`
	CurrentNodeID *string             `json:"currentNodeId"`
	StartedAt     time.Time           `json:"startedAt"`
	CompletedAt   *time.Time          `json:"completedAt"`
	Error         string              `json:"error,omitempty"`
	ExecutionLog  []ExecutionLogEntry `json:"executionLog"`
}

// NewExecution creates a running execution.
func NewExecution(id, workflowID, workflowName, bookingID string, startedAt time.Time) *WorkflowExecution {
	return &WorkflowExecution{
		ID:           id,
		WorkflowID:   workflowID,
		WorkflowName: workflowName,
		BookingID:    bookingID,
		Status:       ExecutionStatusRunning,
		StartedAt:    startedAt,
		ExecutionLog: make([]ExecutionLogEntry, 0),
	}
}

// Append adds an entry to the log. Timestamps never go backwards: an entry
// stamped before its predecessor takes the predecessor's timestamp.
func (e *WorkflowExecution) Append(entry ExecutionLogEntry) {
	if n := len(e.ExecutionLog); n > 0 {
		last := e.ExecutionLog[n-1].Timestamp
		if entry.Timestamp.Before(last) {
			entry.Timestamp = last
		}
	}

	e.ExecutionLog = append(e.ExecutionLog, entry)
}

// Enter marks nodeID as the node most recently entered.
func (e *WorkflowExecution) Enter(nodeID string) {
	if e.Status.IsTerminal() {
		return
	}

	id := nodeID
	e.CurrentNodeID = &id
}

// Complete moves a running execution to completed. Terminal executions are left unchanged.
func (e *WorkflowExecution) Complete(at time.Time) {
	if e.Status.IsTerminal() {
		return
	}

	e.Status = ExecutionStatusCompleted
	e.CompletedAt = &at
}

// Fail moves a running execution to failed. Terminal executions are left unchanged.
func (e *WorkflowExecution) Fail(at time.Time, err error) {
	if e.Status.IsTerminal() {
		return
	}

	e.Status = ExecutionStatusFailed
	e.CompletedAt = &at

	if err != nil {
		e.Error = err.Error()
	}
}

// Snapshot returns a deep copy safe to hand to observers.
func (e *WorkflowExecution) Snapshot() *WorkflowExecution {
	snapshot := *e
	snapshot.ExecutionLog = append([]ExecutionLogEntry(nil), e.ExecutionLog...)

	if e.CurrentNodeID != nil {
		id := *e.CurrentNodeID
		snapshot.CurrentNodeID = &id
	}

	if e.CompletedAt != nil {
		at := *e.CompletedAt
		snapshot.CompletedAt = &at
	}

	return &snapshot
}
