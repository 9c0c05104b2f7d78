package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create workflows table
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT false,
				assigned_facilities JSONB NOT NULL DEFAULT '[]',
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_is_active ON workflows(is_active);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);

			-- Nodes keep their authoring position so the graph round-trips unchanged
			CREATE TABLE workflow_nodes (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				node_type VARCHAR(50) NOT NULL,
				data JSONB NOT NULL DEFAULT '{}',
				position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
				position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
				sort_order INT NOT NULL,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_nodes_type ON workflow_nodes(node_type);

			-- Edge order decides which branch a linear walk follows
			CREATE TABLE workflow_edges (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				source_node_id VARCHAR(255) NOT NULL,
				target_node_id VARCHAR(255) NOT NULL,
				label VARCHAR(255) NOT NULL DEFAULT '',
				animated BOOLEAN NOT NULL DEFAULT false,
				sort_order INT NOT NULL,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_edges_source ON workflow_edges(workflow_id, source_node_id);
		`,
	}
}
