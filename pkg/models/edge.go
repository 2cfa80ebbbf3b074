package models

// Edge is a directed connection between two node ids of the same workflow.
type Edge struct {
	ID           string `json:"id"                     validate:"required"`
	Source       string `json:"source"                 validate:"required"`
	Target       string `json:"target"                 validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Data         Data   `json:"data,omitempty"`
}

// Clone returns a deep copy of the edge.
func (e Edge) Clone() Edge {
	e.Data = e.Data.Clone()

	return e
}
