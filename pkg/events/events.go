// Package events defines the workflow lifecycle notifications published after
// successful store operations.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every workflow lifecycle event.
const Topic = "flowcanvas.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowCreatedEvent EventType = "workflow.created"
	WorkflowSavedEvent   EventType = "workflow.saved"
	WorkflowDeletedEvent EventType = "workflow.deleted"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
	OwnerID    string    `json:"owner_id"`
}

func NewBaseEvent(eventType EventType, workflowID, ownerID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		OwnerID:    ownerID,
	}
}

type WorkflowCreated struct {
	BaseEvent

	Name string `json:"name"`
}

func (w WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

// WorkflowSaved reports a completed save. NodesReplaced and EdgesReplaced
// tell which entity types the save replaced.
type WorkflowSaved struct {
	BaseEvent

	Name          string `json:"name"`
	NodeCount     int    `json:"node_count"`
	EdgeCount     int    `json:"edge_count"`
	NodesReplaced bool   `json:"nodes_replaced"`
	EdgesReplaced bool   `json:"edges_replaced"`
}

func (w WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (w WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}
