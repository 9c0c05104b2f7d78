package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoStartNode        = errors.New("workflow has no start node")
	ErrMultipleStartNodes = errors.New("workflow has more than one start node")
	ErrDuplicateNodeID    = errors.New("duplicate node id")
	ErrDanglingEdge       = errors.New("edge references a non-existent node")
	ErrUnknownNodeType    = errors.New("unknown node type")
	ErrNodeDataMismatch   = errors.New("node data does not match node type")
	ErrInvalidStatus      = errors.New("invalid booking status")
)

// StructureError collects every structural violation found in a workflow.
type StructureError struct {
	WorkflowID string
	Problems   []error
}

func (e *StructureError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("workflow %s is malformed: %v", e.WorkflowID, e.Problems[0])
	}

	return fmt.Sprintf("workflow %s is malformed: %v", e.WorkflowID, errors.Join(e.Problems...))
}

func (e *StructureError) Unwrap() []error {
	return e.Problems
}

// StartNode returns the unique start node.
func (w *Workflow) StartNode() (*WorkflowNode, error) {
	starts := w.NodesOfType(NodeTypeStart)

	switch len(starts) {
	case 0:
		return nil, ErrNoStartNode
	case 1:
		return starts[0], nil
	default:
		return nil, fmt.Errorf("%w: found %d", ErrMultipleStartNodes, len(starts))
	}
}

// Validate checks the graph invariants: one start node, unique node ids,
// known node types with matching data and edges that reference existing nodes.
func (w *Workflow) Validate() error {
	var problems []error

	_, err := w.StartNode()
	if err != nil {
		problems = append(problems, err)
	}

	seen := make(map[string]struct{}, len(w.Nodes))

	for _, node := range w.Nodes {
		if _, dup := seen[node.ID]; dup {
			problems = append(problems, fmt.Errorf("%w: %s", ErrDuplicateNodeID, node.ID))
		}

		seen[node.ID] = struct{}{}

		if !node.Type.Valid() {
			problems = append(problems, fmt.Errorf("%w: node %s has type %q", ErrUnknownNodeType, node.ID, node.Type))

			continue
		}

		data, err := node.Config()
		if err != nil {
			problems = append(problems, fmt.Errorf("node %s: %w", node.ID, err))

			continue
		}

		if data.NodeType() != node.Type {
			problems = append(problems, fmt.Errorf("%w: node %s is %s but carries %s data",
				ErrNodeDataMismatch, node.ID, node.Type, data.NodeType()))
		}
	}

	for _, edge := range w.Edges {
		if _, ok := seen[edge.Source]; !ok {
			problems = append(problems, fmt.Errorf("%w: edge %s source %s", ErrDanglingEdge, edge.ID, edge.Source))
		}

		if _, ok := seen[edge.Target]; !ok {
			problems = append(problems, fmt.Errorf("%w: edge %s target %s", ErrDanglingEdge, edge.ID, edge.Target))
		}
	}

	if len(problems) > 0 {
		return &StructureError{WorkflowID: w.ID, Problems: problems}
	}

	return nil
}
