package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/reconcile"
	"github.com/dukex/flowcanvas/pkg/schema"
	"github.com/go-playground/validator/v10"
)

// newValidate returns a validator reporting fields by their JSON names.
func newValidate() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return validate
}

func (w *Workflow) structErrors(prefix string, value any) ([]FieldError, error) {
	err := w.validate.Struct(value)
	if err == nil {
		return nil, nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, err
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))

	for _, fe := range validationErrors {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   prefix + fe.Field(),
			Message: describe(fe),
		})
	}

	return fieldErrors, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}

// graphErrors validates submitted nodes and edges: required fields on every
// entity and the schema of every known node type.
func (w *Workflow) graphErrors(nodes *[]models.Node, edges *[]models.Edge) ([]FieldError, error) {
	var fieldErrors []FieldError

	if nodes != nil {
		for i, node := range *nodes {
			errs, err := w.structErrors(fmt.Sprintf("nodes[%d].", i), node)
			if err != nil {
				return nil, err
			}

			fieldErrors = append(fieldErrors, errs...)
		}

		schemaErrors, err := w.schemas.ValidateNodes(*nodes)
		if err != nil {
			return nil, err
		}

		fieldErrors = append(fieldErrors, fromSchema(schemaErrors)...)
	}

	if edges != nil {
		for i, edge := range *edges {
			errs, err := w.structErrors(fmt.Sprintf("edges[%d].", i), edge)
			if err != nil {
				return nil, err
			}

			fieldErrors = append(fieldErrors, errs...)
		}
	}

	return fieldErrors, nil
}

func fromSchema(errs []schema.FieldError) []FieldError {
	out := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		out = append(out, FieldError{Field: e.Field, Message: e.Message})
	}

	return out
}

// fromChangeset converts reference and identity failures into a validation
// error. It returns nil when err carries none.
func fromChangeset(op string, err error) *ValidationError {
	var changesetErr *reconcile.ChangesetError
	if !errors.As(err, &changesetErr) {
		return nil
	}

	fieldErrors := make([]FieldError, 0, len(changesetErr.Issues))
	for _, issue := range changesetErr.Issues {
		fieldErrors = append(fieldErrors, FieldError{Field: issue.Field, Message: issue.Err.Error()})
	}

	return NewValidationError(op, fieldErrors...)
}
