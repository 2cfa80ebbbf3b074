package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/reconcile"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Create inserts an empty workflow.
func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	if uuid.Validate(workflow.ID) != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, fmt.Errorf("invalid workflow id %q", workflow.ID))
	}

	now := timestamp()

	query := `
		INSERT INTO workflows (id, owner_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`

	_, err := r.db.ExecContext(ctx, query, workflow.ID, workflow.OwnerID, workflow.Name, workflow.Description, now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
		}

		return persistence.NewWorkflowError("Create", workflow.ID, fmt.Errorf("failed to insert workflow: %w", err))
	}

	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	return nil
}

// GetByID loads the workflow header with its nodes and edges in stored order.
func (r *WorkflowRepository) GetByID(ctx context.Context, ownerID, id string) (*models.WorkflowRecord, error) {
	if uuid.Validate(id) != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
	}

	query := `
		SELECT
			id
		  , owner_id
		  , name
		  , description
		  , created_at
		  , updated_at
		FROM workflows
		WHERE id = $1 AND owner_id = $2
	`

	record, err := scanHeader(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	if err := r.loadRows(ctx, r.db, record); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return record, nil
}

// List returns the owner's workflows with node and edge counts, most recently updated first.
func (r *WorkflowRepository) List(ctx context.Context, ownerID string) ([]*models.WorkflowSummary, error) {
	query := `
		SELECT
			w.id
		  , w.name
		  , w.description
		  , w.created_at
		  , w.updated_at
		  , (SELECT COUNT(*) FROM workflow_nodes n WHERE n.workflow_id = w.id)
		  , (SELECT COUNT(*) FROM workflow_edges e WHERE e.workflow_id = w.id)
		FROM workflows w
		WHERE w.owner_id = $1
		ORDER BY w.updated_at DESC, w.id
	`

	return r.querySummaries(ctx, query, ownerID)
}

// Save applies changeset in one transaction. The workflow row is locked for
// the duration so concurrent saves of the same workflow serialize; the last
// one to commit wins.
func (r *WorkflowRepository) Save(ctx context.Context, ownerID string, changeset *reconcile.Changeset) (*models.WorkflowRecord, error) {
	id := changeset.WorkflowID
	if uuid.Validate(id) != nil {
		return nil, persistence.NewWorkflowError("Save", id, persistence.ErrWorkflowNotFound)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence.NewWorkflowError("Save", id, fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		SELECT
			id
		  , owner_id
		  , name
		  , description
		  , created_at
		  , updated_at
		FROM workflows
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`

	record, err := scanHeader(tx.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		return nil, persistence.NewWorkflowError("Save", id, err)
	}

	if changeset.NeedsStoredRows() {
		if err := r.loadRows(ctx, tx, record); err != nil {
			return nil, persistence.NewWorkflowError("Save", id, err)
		}

		if err := changeset.Verify(record); err != nil {
			return nil, persistence.NewWorkflowError("Save", id, err)
		}
	}

	if changeset.Name != nil {
		record.Name = *changeset.Name
	}

	if changeset.Description != nil {
		record.Description = *changeset.Description
	}

	record.UpdatedAt = timestamp()

	_, err = tx.ExecContext(ctx,
		`UPDATE workflows SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		record.Name, record.Description, record.UpdatedAt, id,
	)
	if err != nil {
		return nil, persistence.NewWorkflowError("Save", id, fmt.Errorf("failed to update workflow: %w", err))
	}

	if changeset.ReplaceNodes {
		if err := r.replaceNodes(ctx, tx, id, changeset.Nodes); err != nil {
			return nil, persistence.NewWorkflowError("Save", id, err)
		}
	}

	if changeset.ReplaceEdges {
		if err := r.replaceEdges(ctx, tx, id, changeset.Edges); err != nil {
			return nil, persistence.NewWorkflowError("Save", id, err)
		}
	}

	if err := r.loadRows(ctx, tx, record); err != nil {
		return nil, persistence.NewWorkflowError("Save", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence.NewWorkflowError("Save", id, fmt.Errorf("failed to commit transaction: %w", err))
	}

	r.logger.DebugContext(ctx, "workflow saved",
		"workflow_id", id,
		"nodes", len(record.Nodes),
		"edges", len(record.Edges),
	)

	return record, nil
}

// Delete removes the workflow; nodes and edges follow through ON DELETE CASCADE.
func (r *WorkflowRepository) Delete(ctx context.Context, ownerID, id string) error {
	if uuid.Validate(id) != nil {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, fmt.Errorf("failed to delete workflow: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, fmt.Errorf("failed to get rows affected: %w", err))
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// Stats aggregates the owner's workflows for the dashboard.
func (r *WorkflowRepository) Stats(ctx context.Context, ownerID string) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	query := `
		SELECT
			(SELECT COUNT(*) FROM workflows WHERE owner_id = $1)
		  , (SELECT COUNT(*) FROM workflow_nodes n JOIN workflows w ON w.id = n.workflow_id WHERE w.owner_id = $1)
	`

	err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&stats.TotalWorkflows, &stats.TotalNodes)
	if err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	recentQuery := `
		SELECT
			w.id
		  , w.name
		  , w.description
		  , w.created_at
		  , w.updated_at
		  , (SELECT COUNT(*) FROM workflow_nodes n WHERE n.workflow_id = w.id)
		  , (SELECT COUNT(*) FROM workflow_edges e WHERE e.workflow_id = w.id)
		FROM workflows w
		WHERE w.owner_id = $1
		ORDER BY w.created_at DESC, w.id
		LIMIT $2
	`

	stats.RecentWorkflows, err = r.querySummaries(ctx, recentQuery, ownerID, models.RecentWorkflowsLimit)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *WorkflowRepository) querySummaries(ctx context.Context, query string, args ...any) ([]*models.WorkflowSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer r.closeRows(ctx, rows)

	summaries := make([]*models.WorkflowSummary, 0)

	for rows.Next() {
		var summary models.WorkflowSummary

		err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&summary.Description,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.NodeCount,
			&summary.EdgeCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		summary.CreatedAt = summary.CreatedAt.UTC()
		summary.UpdatedAt = summary.UpdatedAt.UTC()
		summaries = append(summaries, &summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return summaries, nil
}

func (r *WorkflowRepository) replaceNodes(ctx context.Context, tx *sql.Tx, workflowID string, nodes []models.NodeRow) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM workflow_nodes WHERE workflow_id = $1", workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete existing nodes: %w", err)
	}

	if len(nodes) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO workflow_nodes (workflow_id, id, ordinal, node_type, position_x, position_y, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare node insert: %w", err)
	}

	defer func() { _ = stmt.Close() }()

	for i, node := range nodes {
		data, err := marshalData(node.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal data of node %s: %w", node.ID, err)
		}

		_, err = stmt.ExecContext(ctx, workflowID, node.ID, i, string(node.Type), node.PositionX, node.PositionY, string(data))
		if err != nil {
			return fmt.Errorf("failed to insert node %s: %w", node.ID, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) replaceEdges(ctx context.Context, tx *sql.Tx, workflowID string, edges []models.EdgeRow) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM workflow_edges WHERE workflow_id = $1", workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete existing edges: %w", err)
	}

	if len(edges) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO workflow_edges (workflow_id, id, ordinal, source, target, source_node_id, target_node_id, source_handle, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}

	defer func() { _ = stmt.Close() }()

	for i, edge := range edges {
		data, err := marshalData(edge.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal data of edge %s: %w", edge.ID, err)
		}

		handle := sql.NullString{String: edge.SourceHandle, Valid: edge.SourceHandle != ""}

		_, err = stmt.ExecContext(ctx, workflowID, edge.ID, i,
			edge.Source, edge.Target, edge.SourceNodeID, edge.TargetNodeID, handle, string(data))
		if err != nil {
			return fmt.Errorf("failed to insert edge %s: %w", edge.ID, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) loadRows(ctx context.Context, q querier, record *models.WorkflowRecord) error {
	nodes, err := r.loadNodes(ctx, q, record.ID)
	if err != nil {
		return err
	}

	edges, err := r.loadEdges(ctx, q, record.ID)
	if err != nil {
		return err
	}

	record.Nodes = nodes
	record.Edges = edges

	return nil
}

func (r *WorkflowRepository) loadNodes(ctx context.Context, q querier, workflowID string) ([]models.NodeRow, error) {
	query := `
		SELECT id, node_type, position_x, position_y, data
		FROM workflow_nodes
		WHERE workflow_id = $1
		ORDER BY ordinal
	`

	rows, err := q.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow nodes: %w", err)
	}

	defer r.closeRows(ctx, rows)

	nodes := make([]models.NodeRow, 0)

	for rows.Next() {
		var (
			node     models.NodeRow
			nodeType string
			dataJSON []byte
		)

		if err := rows.Scan(&node.ID, &nodeType, &node.PositionX, &node.PositionY, &dataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}

		node.Type = models.NodeType(nodeType)
		node.WorkflowID = workflowID

		if err := json.Unmarshal(dataJSON, &node.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal data of node %s: %w", node.ID, err)
		}

		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

func (r *WorkflowRepository) loadEdges(ctx context.Context, q querier, workflowID string) ([]models.EdgeRow, error) {
	query := `
		SELECT id, source, target, source_node_id, target_node_id, source_handle, data
		FROM workflow_edges
		WHERE workflow_id = $1
		ORDER BY ordinal
	`

	rows, err := q.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow edges: %w", err)
	}

	defer r.closeRows(ctx, rows)

	edges := make([]models.EdgeRow, 0)

	for rows.Next() {
		var (
			edge     models.EdgeRow
			handle   sql.NullString
			dataJSON []byte
		)

		err := rows.Scan(&edge.ID, &edge.Source, &edge.Target, &edge.SourceNodeID, &edge.TargetNodeID, &handle, &dataJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}

		edge.SourceHandle = handle.String
		edge.WorkflowID = workflowID

		if err := json.Unmarshal(dataJSON, &edge.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal data of edge %s: %w", edge.ID, err)
		}

		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

func (r *WorkflowRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func scanHeader(row *sql.Row) (*models.WorkflowRecord, error) {
	var record models.WorkflowRecord

	err := row.Scan(
		&record.ID,
		&record.OwnerID,
		&record.Name,
		&record.Description,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()

	return &record, nil
}

func marshalData(data models.Data) ([]byte, error) {
	if data == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(data)
}

// timestamp is truncated to the microsecond precision PostgreSQL stores.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
