// Package persistence provides the storage abstraction for workflows and their graphs.
package persistence

import (
	"context"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/reconcile"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// WorkflowRepository stores workflows scoped by owner. A workflow that does
// not exist and one that belongs to another owner are indistinguishable:
// both yield ErrWorkflowNotFound.
type WorkflowRepository interface {
	// Create stores an empty workflow. The caller sets ID and OwnerID; the
	// repository stamps CreatedAt and UpdatedAt.
	Create(ctx context.Context, workflow *models.Workflow) error

	GetByID(ctx context.Context, ownerID, id string) (*models.WorkflowRecord, error)

	// List returns summaries ordered by UpdatedAt, newest first.
	List(ctx context.Context, ownerID string) ([]*models.WorkflowSummary, error)

	// Save applies changeset atomically: on success the stored rows of every
	// replaced entity type equal the submitted rows in submitted order; on
	// failure nothing changes.
	Save(ctx context.Context, ownerID string, changeset *reconcile.Changeset) (*models.WorkflowRecord, error)

	// Delete removes the workflow together with its nodes and edges.
	Delete(ctx context.Context, ownerID, id string) error

	Stats(ctx context.Context, ownerID string) (*models.DashboardStats, error)
}
