package client

import (
	"context"
	"fmt"

	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/reconcile"
	"github.com/dukex/flowcanvas/pkg/web"
)

// Editor is an editing session bound to one stored workflow.
type Editor struct {
	client     *Client
	workflowID string
	session    *graph.Session
}

// Open loads workflow id and starts an editing session on it.
func (c *Client) Open(ctx context.Context, id string, ids graph.IDGenerator) (*Editor, error) {
	workflow, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Editor{
		client:     c,
		workflowID: id,
		session:    graph.NewSession(GraphOf(workflow), ids),
	}, nil
}

func (e *Editor) WorkflowID() string {
	return e.workflowID
}

// Apply applies editing operations locally. Nothing is sent until Save.
func (e *Editor) Apply(ops ...graph.Operation) graph.Graph {
	return e.session.Apply(ops...)
}

func (e *Editor) Snapshot() graph.Graph {
	return e.session.Snapshot()
}

// Save replaces the stored nodes and edges with the current graph. A failed
// save leaves the session as it was.
func (e *Editor) Save(ctx context.Context) (*web.WorkflowHeader, error) {
	req := SaveRequest(e.session.Snapshot())

	header, err := e.client.Save(ctx, e.workflowID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow %s: %w", e.workflowID, err)
	}

	return header, nil
}

// Reload discards local edits in favour of the stored workflow.
func (e *Editor) Reload(ctx context.Context) error {
	workflow, err := e.client.Get(ctx, e.workflowID)
	if err != nil {
		return err
	}

	e.session.Replace(GraphOf(workflow))

	return nil
}

// GraphOf rehydrates the graph of an API workflow from its stored rows.
func GraphOf(workflow *web.WorkflowResponse) graph.Graph {
	return reconcile.FromStorage(workflow.Record())
}

// SaveRequest builds a save replacing both nodes and edges with g.
func SaveRequest(g graph.Graph) web.SaveWorkflowRequest {
	snapshot := g.Clone()

	return web.SaveWorkflowRequest{Nodes: &snapshot.Nodes, Edges: &snapshot.Edges}
}
