// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/residentdesk/facilityflow/pkg/models"
)

// CreateTestNode creates a test WorkflowNode with default values that can be overridden.
func CreateTestNode(data models.NodeData, overrides ...func(*models.WorkflowNode)) *models.WorkflowNode {
	node := &models.WorkflowNode{
		ID:       uuid.New().String(),
		Type:     data.NodeType(),
		Data:     data,
		Position: models.Position{X: 100, Y: 200},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node ID.
func WithID(id string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.ID = id
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Position = models.Position{X: x, Y: y}
	}
}

// CreateTestWorkflow creates an active workflow applying to every facility.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:                 uuid.New().String(),
		Name:               "Test Workflow",
		Description:        "A workflow for testing",
		IsActive:           true,
		AssignedFacilities: []string{},
		Nodes:              []*models.WorkflowNode{},
		Edges:              []*models.WorkflowEdge{},
		CreatedBy:          "test-user",
		CreatedAt:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithWorkflowID sets the workflow ID.
func WithWorkflowID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

// WithFacilities assigns the workflow to facilities.
func WithFacilities(facilities ...string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.AssignedFacilities = facilities
	}
}

// WithActive sets whether the workflow is active.
func WithActive(active bool) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.IsActive = active
	}
}

// WithChain replaces the graph with nodes linked one after another in order.
func WithChain(nodes ...*models.WorkflowNode) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
		w.Edges = ChainEdges(nodes...)
	}
}

// ChainEdges links nodes in order.
func ChainEdges(nodes ...*models.WorkflowNode) []*models.WorkflowEdge {
	edges := make([]*models.WorkflowEdge, 0, len(nodes))

	for i := 1; i < len(nodes); i++ {
		edges = append(edges, CreateTestEdge(nodes[i-1].ID, nodes[i].ID))
	}

	return edges
}

// CreateTestEdge creates an edge between two nodes.
func CreateTestEdge(sourceNodeID, targetNodeID string) *models.WorkflowEdge {
	return &models.WorkflowEdge{
		ID:     fmt.Sprintf("e-%s-%s", sourceNodeID, targetNodeID),
		Source: sourceNodeID,
		Target: targetNodeID,
	}
}

// CreateStatusWorkflow creates start -> status(target) -> end.
func CreateStatusWorkflow(target models.BookingStatus, overrides ...func(*models.Workflow)) *models.Workflow {
	chain := WithChain(
		CreateTestNode(models.StartData{}, WithID("start")),
		CreateTestNode(models.StatusData{Status: target}, WithID("status")),
		CreateTestNode(models.EndData{}, WithID("end")),
	)

	return CreateTestWorkflow(append([]func(*models.Workflow){chain}, overrides...)...)
}

// CreateTestBooking creates a pending two-hour booking.
func CreateTestBooking(overrides ...func(*models.Booking)) *models.Booking {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	booking := &models.Booking{
		ID:       "BK-" + uuid.New().String()[:8],
		Facility: "Clubhouse",
		Status:   models.BookingStatusPending,
		User: models.BookingUser{
			Name:  "Ana Silva",
			Email: "ana@example.com",
			Phone: "+15550100",
		},
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		CreatedAt: start.Add(-24 * time.Hour),
		UpdatedAt: start.Add(-24 * time.Hour),
	}

	for _, override := range overrides {
		override(booking)
	}

	return booking
}

// WithFacility sets the booking facility.
func WithFacility(facility string) func(*models.Booking) {
	return func(b *models.Booking) {
		b.Facility = facility
	}
}

// WithDuration sets the booking end relative to its start.
func WithDuration(d time.Duration) func(*models.Booking) {
	return func(b *models.Booking) {
		b.EndTime = b.StartTime.Add(d)
	}
}
