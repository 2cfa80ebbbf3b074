package cache

import (
	"context"
	"fmt"

	"github.com/dukex/flowcanvas/pkg/eventbus"
	"github.com/dukex/flowcanvas/pkg/events"
)

// Listen registers handlers on subscriber that drop the cached entry of every
// workflow reported saved or deleted, including writes made by other API
// instances or by a reader that refilled the cache during a write.
func (p *Persistence) Listen(subscriber eventbus.EventSubscriber) error {
	for _, eventType := range []events.EventType{events.WorkflowSavedEvent, events.WorkflowDeletedEvent} {
		if err := subscriber.Handle(eventType, p.repo.handleEvent); err != nil {
			return fmt.Errorf("failed to register %s handler: %w", eventType, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) handleEvent(ctx context.Context, event any) error {
	switch e := event.(type) {
	case *events.WorkflowSaved:
		r.invalidate(ctx, e.OwnerID, e.WorkflowID)
	case *events.WorkflowDeleted:
		r.invalidate(ctx, e.OwnerID, e.WorkflowID)
	default:
		r.logger.DebugContext(ctx, "ignoring event", "event", fmt.Sprintf("%T", event))
	}

	return nil
}
