package graph

import "github.com/dukex/flowcanvas/pkg/models"

// OperationKind names an operation in its encoded form.
type OperationKind string

const (
	KindAddNode    OperationKind = "add_node"
	KindMoveNode   OperationKind = "move_node"
	KindRemoveNode OperationKind = "remove_node"
	KindConnect    OperationKind = "connect"
	KindRemoveEdge OperationKind = "remove_edge"
)

// Operation is one discrete editing change.
type Operation interface {
	Kind() OperationKind
	apply(g Graph, ids IDGenerator) Graph
}

// AddNode appends a node. When ID is empty one is generated; a supplied ID is
// used verbatim, even if it repeats an existing one.
type AddNode struct {
	ID       string          `json:"id,omitempty"`
	Type     models.NodeType `json:"type"`
	Position models.Position `json:"position"`
	Data     models.Data     `json:"data,omitempty"`
}

func (AddNode) Kind() OperationKind { return KindAddNode }

func (op AddNode) apply(g Graph, ids IDGenerator) Graph {
	id := op.ID
	if id == "" {
		id = uniqueID(func() string { return ids.NodeID(op.Type) }, g.hasNode)
	}

	data := op.Data.Clone()
	if data == nil {
		data = models.Data{}
	}

	out := g.Clone()
	out.Nodes = append(out.Nodes, models.Node{
		ID:       id,
		Type:     op.Type,
		Position: op.Position,
		Data:     data,
	})

	return out
}

// MoveNode sets the position of a node. Unknown ids are ignored.
type MoveNode struct {
	ID       string          `json:"id"`
	Position models.Position `json:"position"`
}

func (MoveNode) Kind() OperationKind { return KindMoveNode }

func (op MoveNode) apply(g Graph, _ IDGenerator) Graph {
	out := g.Clone()

	for i := range out.Nodes {
		if out.Nodes[i].ID == op.ID {
			out.Nodes[i].Position = op.Position

			return out
		}
	}

	return out
}

// RemoveNode deletes a node. Edges referencing it are left in place.
type RemoveNode struct {
	ID string `json:"id"`
}

func (RemoveNode) Kind() OperationKind { return KindRemoveNode }

func (op RemoveNode) apply(g Graph, _ IDGenerator) Graph {
	out := g.Clone()
	out.Nodes = out.Nodes[:0]

	for _, node := range g.Nodes {
		if node.ID != op.ID {
			out.Nodes = append(out.Nodes, node.Clone())
		}
	}

	return out
}

// Connect appends an edge with a freshly generated id. Endpoints are not
// checked against the node list. Missing data becomes {}.
type Connect struct {
	Source       string      `json:"source"`
	Target       string      `json:"target"`
	SourceHandle string      `json:"sourceHandle,omitempty"`
	Data         models.Data `json:"data,omitempty"`
}

func (Connect) Kind() OperationKind { return KindConnect }

func (op Connect) apply(g Graph, ids IDGenerator) Graph {
	id := uniqueID(ids.EdgeID, g.hasEdge)

	data := op.Data.Clone()
	if data == nil {
		data = models.Data{}
	}

	out := g.Clone()
	out.Edges = append(out.Edges, models.Edge{
		ID:           id,
		Source:       op.Source,
		Target:       op.Target,
		SourceHandle: op.SourceHandle,
		Data:         data,
	})

	return out
}

// RemoveEdge deletes an edge. Unknown ids are ignored.
type RemoveEdge struct {
	ID string `json:"id"`
}

func (RemoveEdge) Kind() OperationKind { return KindRemoveEdge }

func (op RemoveEdge) apply(g Graph, _ IDGenerator) Graph {
	out := g.Clone()
	out.Edges = out.Edges[:0]

	for _, edge := range g.Edges {
		if edge.ID != op.ID {
			out.Edges = append(out.Edges, edge.Clone())
		}
	}

	return out
}

// Reducer applies operations to graphs.
type Reducer struct {
	ids IDGenerator
}

// NewReducer returns a reducer drawing new ids from ids. A nil generator
// selects a ClockGenerator.
func NewReducer(ids IDGenerator) *Reducer {
	if ids == nil {
		ids = NewClockGenerator()
	}

	return &Reducer{ids: ids}
}

// Apply returns the graph that results from applying op to g. The input graph
// is not modified.
func (r *Reducer) Apply(g Graph, op Operation) Graph {
	if op == nil {
		return g.Clone()
	}

	return op.apply(g, r.ids)
}

// ApplyAll folds ops over g in order.
func (r *Reducer) ApplyAll(g Graph, ops ...Operation) Graph {
	out := g.Clone()
	for _, op := range ops {
		out = r.Apply(out, op)
	}

	return out
}
