package models

import "time"

// Field limits for workflow headers.
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
)

// Workflow is the owned graph container edited on the canvas.
type Workflow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"        validate:"required,max=100"`
	Description string    `json:"description" validate:"max=500"`
	OwnerID     string    `json:"ownerId"     validate:"required"`
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Header returns a copy of the workflow without its nodes and edges.
func (w *Workflow) Header() *Workflow {
	header := *w
	header.Nodes = nil
	header.Edges = nil

	return &header
}

// WorkflowRecord is a workflow as a store returns it: the header plus the
// stored node and edge rows in their persisted order.
type WorkflowRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"ownerId"`
	Nodes       []NodeRow `json:"nodes"`
	Edges       []EdgeRow `json:"edges"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Header returns the workflow header of the record.
func (r *WorkflowRecord) Header() *Workflow {
	return &Workflow{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		OwnerID:     r.OwnerID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// WorkflowSummary is the list view of a workflow.
type WorkflowSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	NodeCount   int       `json:"nodeCount"`
	EdgeCount   int       `json:"edgeCount"`
}

// DashboardStats aggregates an owner's workflows.
type DashboardStats struct {
	TotalWorkflows  int                `json:"totalWorkflows"`
	TotalNodes      int                `json:"totalNodes"`
	RecentWorkflows []*WorkflowSummary `json:"recentWorkflows"`
}

// RecentWorkflowsLimit is how many workflows the dashboard lists.
const RecentWorkflowsLimit = 5
