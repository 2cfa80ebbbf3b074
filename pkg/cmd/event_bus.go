package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowcanvas/pkg/channels/gochannel"
	"github.com/dukex/flowcanvas/pkg/channels/kafka"
	"github.com/dukex/flowcanvas/pkg/eventbus"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/persistence/cache"
)

// NewEventBus creates the lifecycle event bus for provider. An empty provider
// disables events and returns nil.
func NewEventBus(provider, brokers, serviceName string, logger *slog.Logger) (eventbus.EventBus, error) {
	adapter := watermill.NewSlogLogger(logger)

	switch provider {
	case "":
		return nil, nil
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(adapter)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(adapter, serviceName, kafka.ParseBrokers(brokers))
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}

// ListenForInvalidations subscribes the redis cache of p to lifecycle events
// so saves and deletes drop cached workflows on every instance. It does
// nothing without a bus or without a cache.
func ListenForInvalidations(ctx context.Context, p persistence.Persistence, bus eventbus.EventBus) error {
	cached, ok := p.(*cache.Persistence)
	if !ok || bus == nil {
		return nil
	}

	if err := cached.Listen(bus); err != nil {
		return err
	}

	if err := bus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to lifecycle events: %w", err)
	}

	return nil
}
