package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowcanvas/pkg/events"
)

// ErrUnknownEvent marks a handled event type the bus cannot decode.
var ErrUnknownEvent = errors.New("unknown event type")

// WatermillEventBus carries lifecycle events over a watermill publisher and
// subscriber pair. Handlers must be registered before Subscribe.
type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))
	msg.SetContext(ctx)

	return eb.publisher.Publish(events.Topic, msg)
}

// Subscribe starts dispatching events from the lifecycle topic until ctx is
// done. Register handlers with Handle first.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	go func() {
		for msg := range messages {
			if eb.dispatch(ctx, msg) {
				msg.Ack()
			} else {
				msg.Nack()
			}
		}
	}()

	return nil
}

// dispatch runs the handler registered for msg and reports whether the
// message is done with. Messages without a handler count as done.
func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) bool {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	handler, exists := eb.subscriptions[eventType]
	if !exists {
		return true
	}

	event, err := decodeEvent(eventType, msg.Payload)
	if err != nil {
		return false
	}

	return handler(ctx, event) == nil
}

func decodeEvent(eventType events.EventType, payload []byte) (any, error) {
	var event any

	switch eventType {
	case events.WorkflowCreatedEvent:
		event = &events.WorkflowCreated{}
	case events.WorkflowSavedEvent:
		event = &events.WorkflowSaved{}
	case events.WorkflowDeletedEvent:
		event = &events.WorkflowDeleted{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, eventType)
	}

	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", eventType, err)
	}

	return event, nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
