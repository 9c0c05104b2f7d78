package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/persistence"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const selectWorkflows = `
	SELECT
		id
	  , name
	  , description
	  , is_active
	  , assigned_facilities
	  , COALESCE(created_by, '')
	  , created_at
	  , updated_at
	FROM workflows
`

// GetAll returns all workflows from the database, oldest first.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, selectWorkflows+`
		WHERE deleted_at IS NULL
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func(ctx context.Context, r *WorkflowRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflowBase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	for _, workflow := range workflows {
		err = r.loadGraph(ctx, workflow)
		if err != nil {
			return nil, fmt.Errorf("failed to load graph for workflow %s: %w", workflow.ID, err)
		}
	}

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, selectWorkflows+`
		WHERE id = $1 AND deleted_at IS NULL
	`, id)

	workflow, err := r.scanWorkflowBase(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	if err := r.loadGraph(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to load graph for workflow %s: %w", id, err)
	}

	return workflow, nil
}

// Save upserts a workflow and replaces its nodes and edges.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) (err error) {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	facilities := workflow.AssignedFacilities
	if facilities == nil {
		facilities = []string{}
	}

	facilitiesJSON, err := json.Marshal(facilities)
	if err != nil {
		return fmt.Errorf("failed to marshal assigned facilities: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	workflowQuery := `
		INSERT INTO workflows (id, name, description, is_active, assigned_facilities, created_by, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			assigned_facilities = EXCLUDED.assigned_facilities,
			created_by = EXCLUDED.created_by,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`

	_, err = tx.ExecContext(ctx, workflowQuery,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.IsActive,
		facilitiesJSON,
		workflow.CreatedBy,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow base: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_edges WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing edges: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_nodes WHERE workflow_id = $1", workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing nodes: %w", err)
	}

	err = r.saveWorkflowNodes(ctx, tx, workflow)
	if err != nil {
		return fmt.Errorf("failed to save workflow nodes: %w", err)
	}

	err = r.saveWorkflowEdges(ctx, tx, workflow)
	if err != nil {
		return fmt.Errorf("failed to save workflow edges: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete soft deletes a workflow by setting deleted_at timestamp.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE workflows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) loadGraph(ctx context.Context, workflow *models.Workflow) error {
	nodes, err := r.loadNodes(ctx, workflow.ID)
	if err != nil {
		return err
	}

	edges, err := r.loadEdges(ctx, workflow.ID)
	if err != nil {
		return err
	}

	workflow.Nodes = nodes
	workflow.Edges = edges

	return nil
}

func (r *WorkflowRepository) loadNodes(ctx context.Context, workflowID string) ([]*models.WorkflowNode, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, node_type, data, position_x, position_y
		FROM workflow_nodes
		WHERE workflow_id = $1
		ORDER BY sort_order
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow nodes: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.Error("failed to close rows", "error", err)
		}
	}()

	nodes := make([]*models.WorkflowNode, 0)

	for rows.Next() {
		var (
			node     models.WorkflowNode
			dataJSON []byte
		)

		err := rows.Scan(&node.ID, &node.Type, &dataJSON, &node.Position.X, &node.Position.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}

		node.Data, err = models.DecodeNodeData(node.Type, dataJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode data of node %s: %w", node.ID, err)
		}

		nodes = append(nodes, &node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

func (r *WorkflowRepository) loadEdges(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_node_id, target_node_id, label, animated
		FROM workflow_edges
		WHERE workflow_id = $1
		ORDER BY sort_order
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow edges: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.Error("failed to close rows", "error", err)
		}
	}()

	edges := make([]*models.WorkflowEdge, 0)

	for rows.Next() {
		var edge models.WorkflowEdge

		err := rows.Scan(&edge.ID, &edge.Source, &edge.Target, &edge.Label, &edge.Animated)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}

		edges = append(edges, &edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

// saveWorkflowNodes saves nodes for a workflow in authoring order.
func (r *WorkflowRepository) saveWorkflowNodes(ctx context.Context, tx *sql.Tx, workflow *models.Workflow) error {
	query := `
		INSERT INTO workflow_nodes (workflow_id, id, node_type, data, position_x, position_y, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, node := range workflow.Nodes {
		dataJSON, err := nodeDataJSON(node)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, query,
			workflow.ID,
			node.ID,
			node.Type,
			dataJSON,
			node.Position.X,
			node.Position.Y,
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to save node %s: %w", node.ID, err)
		}
	}

	return nil
}

// nodeDataJSON encodes the data column of a node. Nodes without data store
// an empty object so DecodeNodeData falls back to the type's defaults; pointer
// variants are stored like their values.
func nodeDataJSON(node *models.WorkflowNode) ([]byte, error) {
	if node.Data == nil {
		return []byte("{}"), nil
	}

	data, err := node.Config()
	if err != nil {
		return nil, fmt.Errorf("invalid data on node %s: %w", node.ID, err)
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data of node %s: %w", node.ID, err)
	}

	return dataJSON, nil
}

// saveWorkflowEdges saves edges for a workflow in authoring order.
func (r *WorkflowRepository) saveWorkflowEdges(ctx context.Context, tx *sql.Tx, workflow *models.Workflow) error {
	query := `
		INSERT INTO workflow_edges (workflow_id, id, source_node_id, target_node_id, label, animated, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i, edge := range workflow.Edges {
		_, err := tx.ExecContext(ctx, query,
			workflow.ID,
			edge.ID,
			edge.Source,
			edge.Target,
			edge.Label,
			edge.Animated,
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to save edge %s: %w", edge.ID, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) scanWorkflowBase(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var (
		workflow       models.Workflow
		facilitiesJSON []byte
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.IsActive,
		&facilitiesJSON,
		&workflow.CreatedBy,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.AssignedFacilities = []string{}

	if facilitiesJSON != nil {
		err := json.Unmarshal(facilitiesJSON, &workflow.AssignedFacilities)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal assigned facilities: %w", err)
		}
	}

	return &workflow, nil
}
