package graph

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownOperation is returned when decoding an operation of unknown kind.
var ErrUnknownOperation = errors.New("unknown operation")

type envelope struct {
	Op OperationKind `json:"op"`
}

// EncodeOperations encodes ops as a JSON array of objects tagged with "op".
func EncodeOperations(ops []Operation) ([]byte, error) {
	encoded := make([]json.RawMessage, 0, len(ops))

	for i, op := range ops {
		body, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("failed to encode operation %d: %w", i, err)
		}

		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("failed to encode operation %d: %w", i, err)
		}

		kind, _ := json.Marshal(op.Kind())
		fields["op"] = kind

		body, err = json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode operation %d: %w", i, err)
		}

		encoded = append(encoded, body)
	}

	return json.Marshal(encoded)
}

// DecodeOperations decodes a JSON array produced by EncodeOperations.
func DecodeOperations(data []byte) ([]Operation, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode operations: %w", err)
	}

	ops := make([]Operation, 0, len(raw))

	for i, item := range raw {
		op, err := decodeOperation(item)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}

		ops = append(ops, op)
	}

	return ops, nil
}

func decodeOperation(data json.RawMessage) (Operation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	switch env.Op {
	case KindAddNode:
		var op AddNode
		err := json.Unmarshal(data, &op)

		return op, err
	case KindMoveNode:
		var op MoveNode
		err := json.Unmarshal(data, &op)

		return op, err
	case KindRemoveNode:
		var op RemoveNode
		err := json.Unmarshal(data, &op)

		return op, err
	case KindConnect:
		var op Connect
		err := json.Unmarshal(data, &op)

		return op, err
	case KindRemoveEdge:
		var op RemoveEdge
		err := json.Unmarshal(data, &op)

		return op, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, env.Op)
	}
}
