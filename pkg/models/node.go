// Package models defines graph nodes and edges for workflow execution
package models

import (
	"encoding/json"
	"fmt"
)

// Position is the node's location on the authoring canvas. It carries no
// execution semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WorkflowNode is a typed step in a workflow graph.
type WorkflowNode struct {
	ID       string   `json:"id"       validate:"required"`
	Type     NodeType `json:"type"     validate:"required"`
	Data     NodeData `json:"data"`
	Position Position `json:"position"`
}

type workflowNodeJSON struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Data     json.RawMessage `json:"data"`
	Position Position        `json:"position"`
}

func (n WorkflowNode) MarshalJSON() ([]byte, error) {
	raw := json.RawMessage("{}")

	if n.Data != nil {
		var err error

		raw, err = json.Marshal(n.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data for node %s: %w", n.ID, err)
		}
	}

	return json.Marshal(workflowNodeJSON{
		ID:       n.ID,
		Type:     n.Type,
		Data:     raw,
		Position: n.Position,
	})
}

func (n *WorkflowNode) UnmarshalJSON(body []byte) error {
	var raw workflowNodeJSON

	err := json.Unmarshal(body, &raw)
	if err != nil {
		return err
	}

	data, err := DecodeNodeData(raw.Type, raw.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", raw.ID, err)
	}

	n.ID = raw.ID
	n.Type = raw.Type
	n.Data = data
	n.Position = raw.Position

	return nil
}

// Config returns the node's data as a value variant, falling back to the
// defaults of its type.
func (n *WorkflowNode) Config() (NodeData, error) {
	return NormalizeNodeData(n.Type, n.Data)
}

// Label returns the node's display label.
func (n *WorkflowNode) Label() string {
	data, err := n.Config()
	if err != nil || n.Data == nil {
		return string(n.Type)
	}

	return data.DisplayLabel()
}

// WorkflowEdge is a directed connection between two nodes. Label is advisory
// unless the engine evaluates conditions.
type WorkflowEdge struct {
	ID       string `json:"id"`
	Source   string `json:"source"             validate:"required"`
	Target   string `json:"target"             validate:"required"`
	Label    string `json:"label,omitempty"`
	Animated bool   `json:"animated,omitempty"`
}
