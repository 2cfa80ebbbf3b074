package models

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnsupportedValue is returned when a Data value falls outside the JSON
// value kinds.
var ErrUnsupportedValue = errors.New("unsupported data value")

// Data is the node- or edge-specific configuration. Values are limited to JSON
// kinds: nil, bool, numbers, string, []any and map[string]any. Unknown keys are
// kept as they are.
type Data map[string]any

// Label returns the display label, if any.
func (d Data) Label() string {
	label, _ := d["label"].(string)

	return label
}

// Clone returns a deep copy of d. A nil Data clones to nil.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}

	out := make(Data, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}

	return out
}

// Validate checks that every value, recursively, is a JSON value kind. The
// returned error names the offending key path.
func (d Data) Validate() error {
	return d.validateNested("")
}

func validateValue(path string, v any) error {
	switch value := v.(type) {
	case nil, bool, string,
		float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return nil
	case []any:
		for i, item := range value {
			if err := validateValue(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}

		return nil
	case map[string]any:
		return Data(value).validateNested(path)
	case Data:
		return value.validateNested(path)
	default:
		return fmt.Errorf("%w at %s: %T", ErrUnsupportedValue, path, v)
	}
}

func (d Data) validateNested(path string) error {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		keyPath := k
		if path != "" {
			keyPath = path + "." + k
		}

		if err := validateValue(keyPath, d[k]); err != nil {
			return err
		}
	}

	return nil
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = cloneValue(item)
		}

		return out
	case Data:
		return value.Clone()
	default:
		return v
	}
}
