// Package graph applies editing operations to an in-memory workflow graph.
//
// Every operation goes through Reducer.Apply, which returns a new Graph and
// never mutates its input. Edges are not checked against nodes here: an edge
// may point at a node that was never added or was removed since. Referential
// integrity is enforced when the graph is saved.
package graph

import "github.com/dukex/flowcanvas/pkg/models"

// Graph is the node and edge lists of a workflow being edited.
type Graph struct {
	Nodes []models.Node `json:"nodes"`
	Edges []models.Edge `json:"edges"`
}

// Clone returns a deep copy of g.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]models.Node, len(g.Nodes)),
		Edges: make([]models.Edge, len(g.Edges)),
	}

	for i, node := range g.Nodes {
		out.Nodes[i] = node.Clone()
	}

	for i, edge := range g.Edges {
		out.Edges[i] = edge.Clone()
	}

	return out
}

// Node returns the first node with the given id.
func (g Graph) Node(id string) (models.Node, bool) {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return models.Node{}, false
}

// Edge returns the first edge with the given id.
func (g Graph) Edge(id string) (models.Edge, bool) {
	for _, edge := range g.Edges {
		if edge.ID == id {
			return edge, true
		}
	}

	return models.Edge{}, false
}

// DanglingEdges returns the edges whose source or target is not a node of g.
func (g Graph) DanglingEdges() []models.Edge {
	ids := g.nodeIDs()

	var dangling []models.Edge

	for _, edge := range g.Edges {
		_, sourceOK := ids[edge.Source]
		_, targetOK := ids[edge.Target]

		if !sourceOK || !targetOK {
			dangling = append(dangling, edge)
		}
	}

	return dangling
}

// PruneDanglingEdges returns a copy of g without dangling edges. RemoveNode
// does not cascade; callers that want the cascade apply this afterwards.
func (g Graph) PruneDanglingEdges() Graph {
	ids := g.nodeIDs()
	out := g.Clone()
	out.Edges = out.Edges[:0]

	for _, edge := range g.Edges {
		_, sourceOK := ids[edge.Source]
		_, targetOK := ids[edge.Target]

		if sourceOK && targetOK {
			out.Edges = append(out.Edges, edge.Clone())
		}
	}

	return out
}

func (g Graph) nodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, node := range g.Nodes {
		ids[node.ID] = struct{}{}
	}

	return ids
}

func (g Graph) hasNode(id string) bool {
	_, ok := g.Node(id)

	return ok
}

func (g Graph) hasEdge(id string) bool {
	_, ok := g.Edge(id)

	return ok
}
