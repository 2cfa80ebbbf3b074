package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeType_IsKnown(t *testing.T) {
	for _, nodeType := range KnownNodeTypes {
		assert.True(t, nodeType.IsKnown(), nodeType)
	}

	assert.False(t, NodeType("http_request").IsKnown())
	assert.False(t, NodeType("").IsKnown())
}

func TestHandles(t *testing.T) {
	assert.Equal(t, []string{HandleTrue, HandleFalse}, Handles(NodeTypeCondition))
	assert.Nil(t, Handles(NodeTypeWebhook))
	assert.Nil(t, Handles("custom"))

	assert.False(t, HasTarget(NodeTypeStart))
	assert.True(t, HasSource(NodeTypeStart))
	assert.False(t, HasSource(NodeTypeEnd))
	assert.True(t, HasTarget(NodeTypeEnd))
	assert.True(t, HasSource("custom"))
}

func TestData_Label(t *testing.T) {
	assert.Equal(t, "Check plan", Data{"label": "Check plan"}.Label())
	assert.Empty(t, Data{"label": 3.0}.Label())
	assert.Empty(t, Data(nil).Label())
}

func TestData_Validate(t *testing.T) {
	valid := Data{
		"label":   "Notify",
		"retries": 3,
		"ratio":   0.5,
		"enabled": true,
		"missing": nil,
		"headers": map[string]any{"X-Token": "abc"},
		"steps":   []any{"a", 1.0, map[string]any{"nested": []any{false}}},
		"inner":   Data{"ok": "yes"},
	}
	require.NoError(t, valid.Validate())
	require.NoError(t, Data(nil).Validate())

	err := Data{"headers": map[string]any{"when": time.Now()}}.Validate()
	require.ErrorIs(t, err, ErrUnsupportedValue)
	assert.Contains(t, err.Error(), "headers.when")

	err = Data{"steps": []any{"a", struct{}{}}}.Validate()
	require.ErrorIs(t, err, ErrUnsupportedValue)
	assert.Contains(t, err.Error(), "steps[1]")
}

func TestData_Clone(t *testing.T) {
	original := Data{
		"headers": map[string]any{"X-Token": "abc"},
		"steps":   []any{"a", map[string]any{"b": "c"}},
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	clone["headers"].(map[string]any)["X-Token"] = "changed"
	clone["steps"].([]any)[1].(map[string]any)["b"] = "changed"
	clone["new"] = true

	assert.Equal(t, "abc", original["headers"].(map[string]any)["X-Token"])
	assert.Equal(t, "c", original["steps"].([]any)[1].(map[string]any)["b"])
	assert.NotContains(t, original, "new")

	assert.Nil(t, Data(nil).Clone())
}

func TestNodeAndEdge_Clone(t *testing.T) {
	node := Node{ID: "n", Type: NodeTypeLogger, Data: Data{"message": "hi"}}
	nodeClone := node.Clone()
	nodeClone.Data["message"] = "bye"
	assert.Equal(t, "hi", node.Data["message"])

	edge := Edge{ID: "e", Source: "a", Target: "b", Data: Data{"label": "x"}}
	edgeClone := edge.Clone()
	edgeClone.Data["label"] = "y"
	assert.Equal(t, "x", edge.Data["label"])
}

func TestWorkflow_Header(t *testing.T) {
	now := time.Now()
	workflow := &Workflow{
		ID:        "wf-1",
		Name:      "Onboarding",
		OwnerID:   "user-1",
		Nodes:     []Node{{ID: "start-1", Type: NodeTypeStart}},
		Edges:     []Edge{{ID: "edge-1", Source: "start-1", Target: "end-1"}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	header := workflow.Header()
	assert.Nil(t, header.Nodes)
	assert.Nil(t, header.Edges)
	assert.Equal(t, "Onboarding", header.Name)
	assert.Len(t, workflow.Nodes, 1, "the original keeps its nodes")

	record := &WorkflowRecord{ID: "wf-1", Name: "Onboarding", OwnerID: "user-1", CreatedAt: now, UpdatedAt: now}
	assert.Equal(t, &Workflow{ID: "wf-1", Name: "Onboarding", OwnerID: "user-1", CreatedAt: now, UpdatedAt: now}, record.Header())
}
