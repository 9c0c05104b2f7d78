// Package models defines the core domain models for booking workflow automation
package models

import (
	"slices"
	"strings"
	"time"
)

// Workflow is an authored automation graph that can be run against bookings.
// An empty AssignedFacilities applies the workflow to every facility.
type Workflow struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"               validate:"required,min=3"`
	Description        string          `json:"description"`
	IsActive           bool            `json:"isActive"`
	AssignedFacilities []string        `json:"assignedFacilities"`
	Nodes              []*WorkflowNode `json:"nodes"              validate:"dive"`
	Edges              []*WorkflowEdge `json:"edges"              validate:"dive"`
	CreatedBy          string          `json:"createdBy"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// AppliesToFacility reports whether the workflow is assigned to the facility.
func (w *Workflow) AppliesToFacility(facility string) bool {
	if len(w.AssignedFacilities) == 0 {
		return true
	}

	return slices.Contains(w.AssignedFacilities, facility)
}

// NodeByID returns the node with the given id.
func (w *Workflow) NodeByID(id string) (*WorkflowNode, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// NodesOfType returns the nodes of the given type in authoring order.
func (w *Workflow) NodesOfType(nodeType NodeType) []*WorkflowNode {
	var nodes []*WorkflowNode

	for _, node := range w.Nodes {
		if node.Type == nodeType {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// OutgoingEdges returns the edges leaving a node in authoring order.
func (w *Workflow) OutgoingEdges(nodeID string) []*WorkflowEdge {
	var edges []*WorkflowEdge

	for _, edge := range w.Edges {
		if edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// FirstOutgoingEdge returns the first authored edge whose source is nodeID.
func (w *Workflow) FirstOutgoingEdge(nodeID string) (*WorkflowEdge, bool) {
	for _, edge := range w.Edges {
		if edge.Source == nodeID {
			return edge, true
		}
	}

	return nil, false
}

// HasConditionMentioning reports whether any condition node's text contains
// term. The match is a plain substring test.
func (w *Workflow) HasConditionMentioning(term string) bool {
	if term == "" {
		return false
	}

	for _, node := range w.NodesOfType(NodeTypeCondition) {
		config, err := node.Config()
		if err != nil {
			continue
		}

		data, ok := config.(ConditionData)
		if ok && strings.Contains(data.Condition, term) {
			return true
		}
	}

	return false
}

// Clone returns a deep copy of the workflow graph.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}

	clone := *w
	clone.AssignedFacilities = append([]string(nil), w.AssignedFacilities...)

	clone.Nodes = make([]*WorkflowNode, 0, len(w.Nodes))
	for _, node := range w.Nodes {
		n := *node
		clone.Nodes = append(clone.Nodes, &n)
	}

	clone.Edges = make([]*WorkflowEdge, 0, len(w.Edges))
	for _, edge := range w.Edges {
		e := *edge
		clone.Edges = append(clone.Edges, &e)
	}

	return &clone
}
