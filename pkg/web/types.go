package web

import (
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/services"
)

// NodeResource is a stored node as the API returns it: the position flattened
// into two numbers.
type NodeResource struct {
	ID        string          `json:"id"`
	Type      models.NodeType `json:"type"`
	PositionX float64         `json:"positionX"`
	PositionY float64         `json:"positionY"`
	Data      models.Data     `json:"data"`
}

// EdgeResource is a stored edge as the API returns it.
type EdgeResource struct {
	ID           string      `json:"id"`
	Source       string      `json:"source"`
	Target       string      `json:"target"`
	SourceHandle string      `json:"sourceHandle,omitempty"`
	Data         models.Data `json:"data"`
}

// CreateWorkflowRequest is the body of POST /workflows.
type CreateWorkflowRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SaveWorkflowRequest is the body of PUT /workflows/:id. Nodes and edges come
// in graph form, each node with a nested position. Omitted lists are left as
// stored; an empty list clears that entity type.
type SaveWorkflowRequest struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Nodes       *[]models.Node `json:"nodes,omitempty"`
	Edges       *[]models.Edge `json:"edges,omitempty"`
}

// WorkflowResponse is a workflow with its stored nodes and edges.
type WorkflowResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Nodes       []NodeResource `json:"nodes"`
	Edges       []EdgeResource `json:"edges"`
}

// WorkflowHeader is a workflow without nodes and edges.
type WorkflowHeader struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// NodeTypeResponse describes a node type for editor palettes.
type NodeTypeResponse struct {
	Type      models.NodeType `json:"type"`
	Handles   []string        `json:"handles"`
	HasSource bool            `json:"hasSource"`
	HasTarget bool            `json:"hasTarget"`
	Schema    map[string]any  `json:"schema"`
}

func (r SaveWorkflowRequest) toService() services.SaveWorkflowRequest {
	return services.SaveWorkflowRequest{
		Name:        r.Name,
		Description: r.Description,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
	}
}

// NewWorkflowResponse converts a stored record to its API form.
func NewWorkflowResponse(record *models.WorkflowRecord) WorkflowResponse {
	response := WorkflowResponse{
		ID:          record.ID,
		Name:        record.Name,
		Description: record.Description,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
		Nodes:       make([]NodeResource, 0, len(record.Nodes)),
		Edges:       make([]EdgeResource, 0, len(record.Edges)),
	}

	for _, row := range record.Nodes {
		response.Nodes = append(response.Nodes, NodeResource{
			ID:        row.ID,
			Type:      row.Type,
			PositionX: row.PositionX,
			PositionY: row.PositionY,
			Data:      row.Data,
		})
	}

	for _, row := range record.Edges {
		response.Edges = append(response.Edges, EdgeResource{
			ID:           row.ID,
			Source:       row.Source,
			Target:       row.Target,
			SourceHandle: row.SourceHandle,
			Data:         row.Data,
		})
	}

	return response
}

// Record returns the stored rows carried by the response, ready to be
// rehydrated into graph form.
func (r WorkflowResponse) Record() *models.WorkflowRecord {
	record := &models.WorkflowRecord{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Nodes:       make([]models.NodeRow, 0, len(r.Nodes)),
		Edges:       make([]models.EdgeRow, 0, len(r.Edges)),
	}

	for _, node := range r.Nodes {
		record.Nodes = append(record.Nodes, models.NodeRow{
			ID:         node.ID,
			Type:       node.Type,
			PositionX:  node.PositionX,
			PositionY:  node.PositionY,
			Data:       node.Data,
			WorkflowID: r.ID,
		})
	}

	for _, edge := range r.Edges {
		record.Edges = append(record.Edges, models.EdgeRow{
			ID:           edge.ID,
			Source:       edge.Source,
			Target:       edge.Target,
			SourceNodeID: edge.Source,
			TargetNodeID: edge.Target,
			SourceHandle: edge.SourceHandle,
			WorkflowID:   r.ID,
			Data:         edge.Data,
		})
	}

	return record
}

// NewWorkflowHeader converts a workflow to its header form.
func NewWorkflowHeader(workflow *models.Workflow) WorkflowHeader {
	return WorkflowHeader{
		ID:          workflow.ID,
		Name:        workflow.Name,
		Description: workflow.Description,
		OwnerID:     workflow.OwnerID,
		CreatedAt:   workflow.CreatedAt,
		UpdatedAt:   workflow.UpdatedAt,
	}
}
