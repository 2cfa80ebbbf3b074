// Package schema validates node data against the JSON Schema of its node type.
//
// Every property is optional and unknown properties are allowed, so data
// written by newer editors still validates. Nodes of unknown types are passed
// through unchecked.
package schema

import (
	"fmt"
	"sort"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/robfig/cron/v3"
	"github.com/xeipuuv/gojsonschema"
)

// rootField is how gojsonschema names the validated document itself.
const rootField = "(root)"

// FieldError is one violation, addressed like "nodes[2].data.url".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func label() map[string]any {
	return map[string]any{"type": "string"}
}

func object(properties map[string]any) map[string]any {
	properties["label"] = label()

	return map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}
}

var definitions = map[models.NodeType]map[string]any{
	models.NodeTypeStart: object(map[string]any{}),
	models.NodeTypeEnd:   object(map[string]any{}),
	models.NodeTypeCondition: object(map[string]any{
		"expression": map[string]any{"type": "string"},
	}),
	models.NodeTypeDelay: object(map[string]any{
		"duration": map[string]any{"type": []any{"number", "string"}, "minimum": 0},
		"schedule": map[string]any{"type": "string"},
	}),
	models.NodeTypeWebhook: object(map[string]any{
		"url":    map[string]any{"type": "string", "format": "uri"},
		"method": map[string]any{"type": "string", "enum": []any{"GET", "POST", "PUT", "PATCH", "DELETE"}},
		"headers": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "string"},
		},
	}),
	models.NodeTypeLogger: object(map[string]any{
		"message": map[string]any{"type": "string"},
		"level":   map[string]any{"type": "string", "enum": []any{"debug", "info", "warn", "error"}},
	}),
}

// Definition returns the JSON Schema document for nodeType.
func Definition(nodeType models.NodeType) (map[string]any, bool) {
	def, ok := definitions[nodeType]

	return def, ok
}

// Validator checks node data against the compiled schemas.
type Validator struct {
	schemas map[models.NodeType]*gojsonschema.Schema
	cron    cron.Parser
}

// NewValidator compiles the schema of every known node type.
func NewValidator() (*Validator, error) {
	schemas := make(map[models.NodeType]*gojsonschema.Schema, len(definitions))

	for nodeType, def := range definitions {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %s nodes: %w", nodeType, err)
		}

		schemas[nodeType] = compiled
	}

	return &Validator{
		schemas: schemas,
		cron:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}, nil
}

// MustNewValidator is like NewValidator but panics if a schema fails to compile.
func MustNewValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}

	return v
}

// ValidateNodes checks every node and returns all violations in node order.
func (v *Validator) ValidateNodes(nodes []models.Node) ([]FieldError, error) {
	var fieldErrors []FieldError

	for i, node := range nodes {
		errs, err := v.ValidateNode(fmt.Sprintf("nodes[%d].data", i), node)
		if err != nil {
			return nil, err
		}

		fieldErrors = append(fieldErrors, errs...)
	}

	return fieldErrors, nil
}

// ValidateNode checks one node's data; prefix addresses the data object in
// the returned field errors. The error return is reserved for data that
// cannot be encoded at all.
func (v *Validator) ValidateNode(prefix string, node models.Node) ([]FieldError, error) {
	compiled, ok := v.schemas[node.Type]
	if !ok {
		return nil, nil
	}

	data := node.Data
	if data == nil {
		data = models.Data{}
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(map[string]any(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to validate %s: %w", prefix, err)
	}

	var fieldErrors []FieldError

	for _, desc := range result.Errors() {
		field := prefix
		if desc.Field() != rootField {
			field = prefix + "." + desc.Field()
		}

		fieldErrors = append(fieldErrors, FieldError{Field: field, Message: desc.Description()})
	}

	fieldErrors = append(fieldErrors, v.checkDelay(prefix, node)...)

	sort.SliceStable(fieldErrors, func(i, j int) bool {
		return fieldErrors[i].Field < fieldErrors[j].Field
	})

	return fieldErrors, nil
}

// checkDelay covers what the delay schema cannot express: duration strings
// must parse as Go durations and schedules must be standard cron expressions.
func (v *Validator) checkDelay(prefix string, node models.Node) []FieldError {
	if node.Type != models.NodeTypeDelay {
		return nil
	}

	var fieldErrors []FieldError

	if duration, ok := node.Data["duration"].(string); ok {
		parsed, err := time.ParseDuration(duration)
		if err != nil {
			fieldErrors = append(fieldErrors, FieldError{Field: prefix + ".duration", Message: "invalid duration: " + err.Error()})
		} else if parsed < 0 {
			fieldErrors = append(fieldErrors, FieldError{Field: prefix + ".duration", Message: "duration must not be negative"})
		}
	}

	if schedule, ok := node.Data["schedule"].(string); ok && schedule != "" {
		if _, err := v.cron.Parse(schedule); err != nil {
			fieldErrors = append(fieldErrors, FieldError{Field: prefix + ".schedule", Message: "invalid cron expression: " + err.Error()})
		}
	}

	return fieldErrors
}
