package models

// Output handles exposed by condition nodes. An edge leaving a condition node
// carries one of them in SourceHandle to mark the branch it represents.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// Handles returns the named source handles a node type exposes. Types with a
// single unnamed output return nil.
func Handles(t NodeType) []string {
	if t == NodeTypeCondition {
		return []string{HandleTrue, HandleFalse}
	}

	return nil
}

// HasTarget reports whether nodes of type t accept incoming edges.
func HasTarget(t NodeType) bool {
	return t != NodeTypeStart
}

// HasSource reports whether nodes of type t can originate edges.
func HasSource(t NodeType) bool {
	return t != NodeTypeEnd
}
