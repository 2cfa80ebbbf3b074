package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowcanvas/pkg/eventbus"
	"github.com/dukex/flowcanvas/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaTc "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func startKafka(t *testing.T) []string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping kafka container test in short mode")
	}

	ctx := context.Background()

	container, err := kafkaTc.Run(ctx, "confluentinc/confluent-local:7.7.0")
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("Failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	admin, err := sarama.NewClusterAdmin(brokers, sarama.NewConfig())
	require.NoError(t, err)

	defer func() {
		_ = admin.Close()
	}()

	require.NoError(t, admin.CreateTopic(events.Topic, &sarama.TopicDetail{
		NumPartitions:     1,
		ReplicationFactor: 1,
	}, false))

	return brokers
}

func TestCreateChannel_DeliversLifecycleEvents(t *testing.T) {
	brokers := startKafka(t)

	pub, sub, err := CreateChannel(watermill.NopLogger{}, "flowcanvas-test", brokers)
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	received := make(chan *events.WorkflowDeleted, 1)

	require.NoError(t, bus.Handle(events.WorkflowDeletedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.WorkflowDeleted)

		return nil
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	sent := events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, "wf-1", "user-1"),
	}

	require.NoError(t, bus.Publish(ctx, "wf-1", sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "user-1", got.OwnerID)
	case <-time.After(60 * time.Second):
		t.Fatal("event was not delivered through kafka")
	}
}
