package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				owner_id VARCHAR(255) NOT NULL,
				name VARCHAR(100) NOT NULL,
				description VARCHAR(500) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_owner_updated_at ON workflows(owner_id, updated_at DESC);
			CREATE INDEX idx_workflows_owner_created_at ON workflows(owner_id, created_at DESC);

			-- Nodes and edges have no foreign key between them: replacing the
			-- nodes of a workflow must leave its edges alone.
			CREATE TABLE workflow_nodes (
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				ordinal INTEGER NOT NULL,
				node_type VARCHAR(255) NOT NULL,
				position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
				position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
				data JSONB NOT NULL DEFAULT '{}',
				PRIMARY KEY (workflow_id, id)
			);

			CREATE TABLE workflow_edges (
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				ordinal INTEGER NOT NULL,
				source VARCHAR(255) NOT NULL,
				target VARCHAR(255) NOT NULL,
				source_node_id VARCHAR(255) NOT NULL,
				target_node_id VARCHAR(255) NOT NULL,
				source_handle VARCHAR(255),
				data JSONB NOT NULL DEFAULT '{}',
				PRIMARY KEY (workflow_id, id),
				CONSTRAINT workflow_edges_node_refs_check
					CHECK (source = source_node_id AND target = target_node_id)
			);

			CREATE INDEX idx_workflow_edges_source_node ON workflow_edges(workflow_id, source_node_id);
			CREATE INDEX idx_workflow_edges_target_node ON workflow_edges(workflow_id, target_node_id);
		`,
	}
}
