// Package services provides the owner-scoped workflow operations and their error kinds.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/flowcanvas/pkg/persistence"
)

var (
	// ErrUnauthorized is returned when no owner identity accompanies a request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrWorkflowNotFound is returned when a workflow is missing or owned by someone else.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrInvalidRequest marks every validation failure.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStorageFailure marks failures of the underlying store.
	ErrStorageFailure = errors.New("storage failure")
)

// FieldError describes one rejected field, e.g. {"nodes[1].id", "is required"}.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field rejected by an operation. No part of
// the request reached storage.
type ValidationError struct {
	Op     string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fieldErr := range e.Errors {
		parts = append(parts, fieldErr.Field+" "+fieldErr.Message)
	}

	return fmt.Sprintf("%s: %v: %s", e.Op, ErrInvalidRequest, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// NewValidationError creates a validation error for op.
func NewValidationError(op string, fieldErrors ...FieldError) *ValidationError {
	return &ValidationError{Op: op, Errors: fieldErrors}
}

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStorageError wraps a store failure. The caller's input is kept so the
// request can be retried as is.
func NewStorageError(op string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    "STORAGE_FAILURE",
		Message: "the workflow store could not complete the request",
		Err:     fmt.Errorf("%w: %w", ErrStorageFailure, err),
	}
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsUnauthorized checks if an error should return HTTP 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsWorkflowNotFound checks if an error should return HTTP 404.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsStorageFailure checks if an error came from the underlying store.
func IsStorageFailure(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}

// FieldErrors returns the field errors carried by err, if any.
func FieldErrors(err error) []FieldError {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Errors
	}

	return nil
}
