// Package reconcile converts between the editing graph and stored rows and
// prepares full-replace changesets for the workflow stores.
package reconcile

import (
	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/models"
)

// NodesToStorage flattens node positions and stamps each row with workflowID.
func NodesToStorage(workflowID string, nodes []models.Node) []models.NodeRow {
	rows := make([]models.NodeRow, 0, len(nodes))

	for _, node := range nodes {
		data := node.Data.Clone()
		if data == nil {
			data = models.Data{}
		}

		rows = append(rows, models.NodeRow{
			ID:         node.ID,
			Type:       node.Type,
			PositionX:  node.Position.X,
			PositionY:  node.Position.Y,
			Data:       data,
			WorkflowID: workflowID,
		})
	}

	return rows
}

// EdgesToStorage stamps each edge with workflowID and mirrors source and
// target into the node reference columns. Missing data is stored as {}.
func EdgesToStorage(workflowID string, edges []models.Edge) []models.EdgeRow {
	rows := make([]models.EdgeRow, 0, len(edges))

	for _, edge := range edges {
		data := edge.Data.Clone()
		if data == nil {
			data = models.Data{}
		}

		rows = append(rows, models.EdgeRow{
			ID:           edge.ID,
			Source:       edge.Source,
			Target:       edge.Target,
			SourceNodeID: edge.Source,
			TargetNodeID: edge.Target,
			SourceHandle: edge.SourceHandle,
			WorkflowID:   workflowID,
			Data:         data,
		})
	}

	return rows
}

// NodesFromStorage rebuilds nodes from stored rows.
func NodesFromStorage(rows []models.NodeRow) []models.Node {
	nodes := make([]models.Node, 0, len(rows))

	for _, row := range rows {
		nodes = append(nodes, models.Node{
			ID:       row.ID,
			Type:     row.Type,
			Position: models.Position{X: row.PositionX, Y: row.PositionY},
			Data:     row.Data.Clone(),
		})
	}

	return nodes
}

// EdgesFromStorage rebuilds edges from stored rows, dropping the node
// reference columns.
func EdgesFromStorage(rows []models.EdgeRow) []models.Edge {
	edges := make([]models.Edge, 0, len(rows))

	for _, row := range rows {
		edges = append(edges, models.Edge{
			ID:           row.ID,
			Source:       row.Source,
			Target:       row.Target,
			SourceHandle: row.SourceHandle,
			Data:         row.Data.Clone(),
		})
	}

	return edges
}

// ToStorage converts a whole graph.
func ToStorage(workflowID string, g graph.Graph) ([]models.NodeRow, []models.EdgeRow) {
	return NodesToStorage(workflowID, g.Nodes), EdgesToStorage(workflowID, g.Edges)
}

// FromStorage rehydrates the editing graph of a stored workflow.
func FromStorage(record *models.WorkflowRecord) graph.Graph {
	if record == nil {
		return graph.Graph{Nodes: []models.Node{}, Edges: []models.Edge{}}
	}

	return graph.Graph{
		Nodes: NodesFromStorage(record.Nodes),
		Edges: EdgesFromStorage(record.Edges),
	}
}
