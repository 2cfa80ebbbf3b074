package graph

import "github.com/dukex/flowcanvas/pkg/models"

// NewPaletteNode returns the AddNode for a node dropped from the palette at
// position: a generated id and a default "<type> node" label.
func NewPaletteNode(nodeType models.NodeType, position models.Position) AddNode {
	return AddNode{
		Type:     nodeType,
		Position: position,
		Data:     models.Data{"label": string(nodeType) + " node"},
	}
}
