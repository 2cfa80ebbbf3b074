// Package eventbus publishes and dispatches workflow lifecycle events over watermill.
package eventbus

import (
	"context"

	"github.com/dukex/flowcanvas/pkg/events"
)

// Event is any lifecycle event; its type selects the handler.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes events keyed by workflow id, so events of one
// workflow stay ordered on partitioned transports.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches received events to the handler registered for
// their type. Events without a handler are acknowledged and dropped.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event, e.g. *events.WorkflowSaved.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
