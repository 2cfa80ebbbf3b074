package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrWorkflowNotFound indicates a workflow was not found for the given owner and identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowAlreadyExists indicates a workflow with the same identifier already exists.
	ErrWorkflowAlreadyExists = errors.New("workflow already exists")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	WorkflowID string
	Err        error
	Message    string
}

func (e *WorkflowError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for workflow %s: %s (%v)", e.Op, e.WorkflowID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}
