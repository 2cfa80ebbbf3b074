// Package models defines the workflow graph entities and their stored row forms.
package models

// NodeType identifies the kind of step a node represents.
type NodeType string

// Recognized node types. Any other value is preserved as-is and receives no
// type-specific treatment.
const (
	NodeTypeStart     NodeType = "start"
	NodeTypeCondition NodeType = "condition"
	NodeTypeDelay     NodeType = "delay"
	NodeTypeWebhook   NodeType = "webhook"
	NodeTypeLogger    NodeType = "logger"
	NodeTypeEnd       NodeType = "end"
)

// KnownNodeTypes lists the recognized node types in palette order.
var KnownNodeTypes = []NodeType{
	NodeTypeStart,
	NodeTypeCondition,
	NodeTypeDelay,
	NodeTypeWebhook,
	NodeTypeLogger,
	NodeTypeEnd,
}

// IsKnown reports whether t is one of the recognized node types.
func (t NodeType) IsKnown() bool {
	for _, known := range KnownNodeTypes {
		if t == known {
			return true
		}
	}

	return false
}

// Position is a point on the editing canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a typed, positioned vertex of a workflow graph.
type Node struct {
	ID       string   `json:"id"       validate:"required"`
	Type     NodeType `json:"type"     validate:"required"`
	Position Position `json:"position"`
	Data     Data     `json:"data"`
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	n.Data = n.Data.Clone()

	return n
}
