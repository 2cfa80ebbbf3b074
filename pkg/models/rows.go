package models

// NodeRow is the stored form of a Node: the position is flattened into two
// scalar columns and the row is stamped with its workflow.
type NodeRow struct {
	ID         string   `json:"id"`
	Type       NodeType `json:"type"`
	PositionX  float64  `json:"positionX"`
	PositionY  float64  `json:"positionY"`
	Data       Data     `json:"data"`
	WorkflowID string   `json:"workflowId"`
}

// EdgeRow is the stored form of an Edge. SourceNodeID and TargetNodeID always
// equal Source and Target; the pair exists for referential lookups.
type EdgeRow struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceNodeID string `json:"sourceNodeId"`
	TargetNodeID string `json:"targetNodeId"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	WorkflowID   string `json:"workflowId"`
	Data         Data   `json:"data"`
}
