package graph

import (
	"strconv"
	"testing"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sequenceGenerator struct {
	nodes int
	edges int
}

func (g *sequenceGenerator) NodeID(nodeType models.NodeType) string {
	g.nodes++

	return string(nodeType) + "-" + strconv.Itoa(g.nodes)
}

func (g *sequenceGenerator) EdgeID() string {
	g.edges++

	return "edge-" + strconv.Itoa(g.edges)
}

// stuckGenerator hands out the same ids forever.
type stuckGenerator struct{}

func (stuckGenerator) NodeID(models.NodeType) string { return "node" }

func (stuckGenerator) EdgeID() string { return "edge" }

func sampleGraph() Graph {
	return Graph{
		Nodes: []models.Node{
			{ID: "start-1", Type: models.NodeTypeStart, Position: models.Position{X: 0, Y: 0}, Data: models.Data{"label": "Start"}},
			{ID: "cond-1", Type: models.NodeTypeCondition, Position: models.Position{X: 0, Y: 100}, Data: models.Data{}},
			{ID: "end-1", Type: models.NodeTypeEnd, Position: models.Position{X: 0, Y: 200}, Data: models.Data{}},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "start-1", Target: "cond-1"},
			{ID: "e2", Source: "cond-1", Target: "end-1", SourceHandle: models.HandleTrue},
		},
	}
}

func TestReducer_AddNode(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})
	g := sampleGraph()

	out := reducer.Apply(g, AddNode{
		Type:     models.NodeTypeDelay,
		Position: models.Position{X: 10.5, Y: 20.25},
		Data:     models.Data{"label": "wait"},
	})

	require.Len(t, out.Nodes, 4)
	added := out.Nodes[3]
	assert.Equal(t, "delay-1", added.ID)
	assert.Equal(t, models.NodeTypeDelay, added.Type)
	assert.Equal(t, models.Position{X: 10.5, Y: 20.25}, added.Position)
	assert.Equal(t, "wait", added.Data.Label())

	// input untouched
	assert.Len(t, g.Nodes, 3)
}

func TestReducer_AddNode_CallerSuppliedID(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})

	out := reducer.Apply(Graph{}, AddNode{ID: "start-1", Type: models.NodeTypeStart})

	require.Len(t, out.Nodes, 1)
	assert.Equal(t, "start-1", out.Nodes[0].ID)
	assert.NotNil(t, out.Nodes[0].Data)
}

func TestReducer_AddNode_SkipsIDsAlreadyInGraph(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})
	g := Graph{Nodes: []models.Node{{ID: "logger-1", Type: models.NodeTypeLogger}}}

	out := reducer.Apply(g, AddNode{Type: models.NodeTypeLogger})

	require.Len(t, out.Nodes, 2)
	assert.Equal(t, "logger-2", out.Nodes[1].ID)
}

func TestReducer_AddNode_NotIdempotent(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})
	op := AddNode{Type: models.NodeTypeWebhook, Position: models.Position{X: 5, Y: 5}}

	out := reducer.ApplyAll(Graph{}, op, op)

	require.Len(t, out.Nodes, 2)
	assert.NotEqual(t, out.Nodes[0].ID, out.Nodes[1].ID)
	assert.Equal(t, out.Nodes[0].Position, out.Nodes[1].Position)
}

func TestReducer_MoveNode(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})
	g := sampleGraph()

	out := reducer.Apply(g, MoveNode{ID: "cond-1", Position: models.Position{X: 42, Y: -7}})

	node, ok := out.Node("cond-1")
	require.True(t, ok)
	assert.Equal(t, models.Position{X: 42, Y: -7}, node.Position)
	assert.Equal(t, models.NodeTypeCondition, node.Type)

	original, _ := g.Node("cond-1")
	assert.Equal(t, models.Position{X: 0, Y: 100}, original.Position)
}

func TestReducer_MoveNode_MissingIDIsNoop(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})
	g := sampleGraph()

	out := reducer.Apply(g, MoveNode{ID: "ghost", Position: models.Position{X: 1, Y: 1}})

	assert.Equal(t, g, out)
}

func TestReducer_MoveNode_SamePositionIsIdempotent(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})
	op := MoveNode{ID: "end-1", Position: models.Position{X: 3, Y: 4}}

	once := reducer.Apply(sampleGraph(), op)
	twice := reducer.Apply(once, op)

	assert.Equal(t, once, twice)
}

func TestReducer_RemoveNode_DoesNotCascade(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})

	out := reducer.Apply(sampleGraph(), RemoveNode{ID: "cond-1"})

	assert.Len(t, out.Nodes, 2)
	assert.Len(t, out.Edges, 2)

	dangling := out.DanglingEdges()
	require.Len(t, dangling, 2)

	pruned := out.PruneDanglingEdges()
	assert.Empty(t, pruned.Edges)
	assert.Len(t, pruned.Nodes, 2)
}

func TestReducer_Remove_Idempotent(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})
	g := sampleGraph()

	tests := []struct {
		name string
		op   Operation
	}{
		{name: "remove missing node", op: RemoveNode{ID: "ghost"}},
		{name: "remove missing edge", op: RemoveEdge{ID: "ghost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := reducer.Apply(g, tt.op)
			assert.Equal(t, g, out)
		})
	}

	once := reducer.Apply(g, RemoveEdge{ID: "e1"})
	twice := reducer.Apply(once, RemoveEdge{ID: "e1"})
	assert.Equal(t, once, twice)
	assert.Len(t, twice.Edges, 1)
}

func TestReducer_Connect(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})

	out := reducer.Apply(sampleGraph(), Connect{Source: "cond-1", Target: "start-1", SourceHandle: models.HandleFalse})

	require.Len(t, out.Edges, 3)
	edge := out.Edges[2]
	assert.Equal(t, "edge-1", edge.ID)
	assert.Equal(t, "cond-1", edge.Source)
	assert.Equal(t, "start-1", edge.Target)
	assert.Equal(t, models.HandleFalse, edge.SourceHandle)
}

func TestReducer_Connect_AllowsUnknownEndpointsAndDuplicates(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})
	op := Connect{Source: "nowhere", Target: "nowhere"}

	out := reducer.ApplyAll(Graph{}, op, op)

	require.Len(t, out.Edges, 2)
	assert.NotEqual(t, out.Edges[0].ID, out.Edges[1].ID)
	assert.Len(t, out.DanglingEdges(), 2)
}

func TestReducer_Connect_DefaultsData(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})

	out := reducer.Apply(sampleGraph(), Connect{Source: "start-1", Target: "end-1"})

	require.Len(t, out.Edges, 3)
	assert.Equal(t, models.Data{}, out.Edges[2].Data)
}

func TestReducer_RepeatingGenerator(t *testing.T) {
	reducer := NewReducer(stuckGenerator{})

	out := reducer.ApplyAll(Graph{},
		AddNode{Type: models.NodeTypeLogger},
		AddNode{Type: models.NodeTypeLogger},
		AddNode{Type: models.NodeTypeLogger},
		Connect{Source: "node", Target: "node-2"},
		Connect{Source: "node", Target: "node-3"},
	)

	require.Len(t, out.Nodes, 3)
	assert.Equal(t, "node", out.Nodes[0].ID)
	assert.Equal(t, "node-2", out.Nodes[1].ID)
	assert.Equal(t, "node-3", out.Nodes[2].ID)

	require.Len(t, out.Edges, 2)
	assert.Equal(t, "edge", out.Edges[0].ID)
	assert.Equal(t, "edge-2", out.Edges[1].ID)
}

func TestReducer_NilOperation(t *testing.T) {
	reducer := NewReducer(nil)
	g := sampleGraph()

	assert.Equal(t, g, reducer.Apply(g, nil))
}

func TestGraph_CloneIsDeep(t *testing.T) {
	g := sampleGraph()
	g.Nodes[0].Data["nested"] = map[string]any{"k": []any{"v"}}

	clone := g.Clone()
	clone.Nodes[0].Data["label"] = "changed"
	clone.Nodes[0].Data["nested"].(map[string]any)["k"] = "other"

	assert.Equal(t, "Start", g.Nodes[0].Data.Label())
	assert.Equal(t, []any{"v"}, g.Nodes[0].Data["nested"].(map[string]any)["k"])
}

func TestClockGenerator_NodeIDsStrictlyIncrease(t *testing.T) {
	frozen := time.UnixMilli(1_700_000_000_000)
	gen := &ClockGenerator{now: func() time.Time { return frozen }}

	first := gen.NodeID(models.NodeTypeStart)
	second := gen.NodeID(models.NodeTypeStart)

	assert.Equal(t, "start-1700000000000", first)
	assert.Equal(t, "start-1700000000001", second)
}

func TestClockGenerator_EdgeIDsUnique(t *testing.T) {
	gen := NewClockGenerator()
	seen := map[string]bool{}

	for range 100 {
		id := gen.EdgeID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestNewPaletteNode(t *testing.T) {
	reducer := NewReducer(&sequenceGenerator{})

	out := reducer.Apply(Graph{}, NewPaletteNode(models.NodeTypeLogger, models.Position{X: 1, Y: 2}))

	require.Len(t, out.Nodes, 1)
	assert.Equal(t, "logger node", out.Nodes[0].Data.Label())
	assert.Equal(t, "logger-1", out.Nodes[0].ID)
}
