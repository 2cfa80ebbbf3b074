package cache_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowcanvas/pkg/channels/gochannel"
	"github.com/dukex/flowcanvas/pkg/eventbus"
	"github.com/dukex/flowcanvas/pkg/events"
	"github.com/dukex/flowcanvas/pkg/mocks"
	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/persistence/cache"
	"github.com/dukex/flowcanvas/pkg/persistence/file"
	"github.com/dukex/flowcanvas/pkg/persistence/persistencetest"
	"github.com/dukex/flowcanvas/pkg/reconcile"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})

	return client
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWorkflowRepository_Contract(t *testing.T) {
	client := setupRedis(t)

	persistencetest.Run(t, func(t *testing.T) persistence.WorkflowRepository {
		require.NoError(t, client.FlushAll(t.Context()).Err())

		return cache.NewPersistence(file.NewPersistence(t.TempDir()), client, time.Minute, newLogger()).WorkflowRepository()
	})
}

func TestWorkflowRepository_CachesAndInvalidates(t *testing.T) {
	client := setupRedis(t)
	ctx := t.Context()

	p := cache.NewPersistence(file.NewPersistence(t.TempDir()), client, time.Minute, newLogger())
	repo := p.WorkflowRepository()

	workflow := &models.Workflow{ID: "wf-1", Name: "Cached", OwnerID: persistencetest.Owner}
	require.NoError(t, repo.Create(ctx, workflow))

	key := cache.Key(persistencetest.Owner, "wf-1")

	_, err := repo.GetByID(ctx, persistencetest.Owner, "wf-1")
	require.NoError(t, err)

	exists, err := client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	g := persistencetest.OnboardingGraph()
	changeset, err := reconcile.NewChangeset("wf-1", &g.Nodes, &g.Edges)
	require.NoError(t, err)

	_, err = repo.Save(ctx, persistencetest.Owner, changeset)
	require.NoError(t, err)

	exists, err = client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists, "save drops the cached entry")

	record, err := repo.GetByID(ctx, persistencetest.Owner, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, g, reconcile.FromStorage(record))

	cached, err := repo.GetByID(ctx, persistencetest.Owner, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, record, cached)

	require.NoError(t, repo.Delete(ctx, persistencetest.Owner, "wf-1"))

	exists, err = client.Exists(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)

	_, err = repo.GetByID(ctx, persistencetest.Owner, "wf-1")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestWorkflowRepository_FallsBackWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})

	p := cache.NewPersistence(file.NewPersistence(t.TempDir()), client, time.Minute, newLogger())
	repo := p.WorkflowRepository()

	require.NoError(t, repo.Create(t.Context(), &models.Workflow{ID: "wf-1", Name: "Down", OwnerID: persistencetest.Owner}))

	record, err := repo.GetByID(t.Context(), persistencetest.Owner, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Down", record.Name)

	assert.Error(t, p.HealthCheck(t.Context()))
}

func TestPersistence_ListenDropsEntriesOnEvents(t *testing.T) {
	client := setupRedis(t)
	ctx := t.Context()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	p := cache.NewPersistence(file.NewPersistence(t.TempDir()), client, time.Minute, newLogger())
	require.NoError(t, p.Listen(bus))
	require.NoError(t, bus.Subscribe(ctx))

	saved := cache.Key(persistencetest.Owner, "wf-saved")
	deleted := cache.Key(persistencetest.Owner, "wf-deleted")
	untouched := cache.Key(persistencetest.Owner, "wf-created")

	for _, key := range []string{saved, deleted, untouched} {
		require.NoError(t, client.Set(ctx, key, "{}", time.Minute).Err())
	}

	require.NoError(t, bus.Publish(ctx, "wf-saved", events.WorkflowSaved{
		BaseEvent: events.NewBaseEvent(events.WorkflowSavedEvent, "wf-saved", persistencetest.Owner),
	}))
	require.NoError(t, bus.Publish(ctx, "wf-deleted", events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, "wf-deleted", persistencetest.Owner),
	}))
	require.NoError(t, bus.Publish(ctx, "wf-created", events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, "wf-created", persistencetest.Owner),
	}))

	assert.Eventually(t, func() bool {
		n, err := client.Exists(ctx, saved, deleted).Result()

		return err == nil && n == 0
	}, 5*time.Second, 50*time.Millisecond)

	exists, err := client.Exists(ctx, untouched).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "created events leave the cache alone")
}

func TestPersistence_ListenReportsHandlerErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	p := cache.NewPersistence(file.NewPersistence(t.TempDir()), client, time.Minute, newLogger())

	bus := &mocks.MockEventBus{}
	bus.On("Handle", events.WorkflowSavedEvent, mock.Anything).Return(errors.New("closed"))

	err := p.Listen(bus)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(events.WorkflowSavedEvent))
	bus.AssertExpectations(t)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "flowcanvas:workflow:user-1:wf-1", cache.Key("user-1", "wf-1"))
}
