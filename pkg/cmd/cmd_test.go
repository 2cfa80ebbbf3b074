package cmd

import (
	"log/slog"
	"testing"

	"github.com/dukex/flowcanvas/pkg/channels/kafka"
	"github.com/dukex/flowcanvas/pkg/events"
	"github.com/dukex/flowcanvas/pkg/mocks"
	"github.com/dukex/flowcanvas/pkg/persistence/cache"
	"github.com/dukex/flowcanvas/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	tests := map[string]string{
		"file:///tmp/data":             "file",
		"./data":                       "file",
		"postgres://localhost/db":      "postgresql",
		"postgresql://localhost/db":    "postgresql",
		"mysql://localhost/flowcanvas": "mysql",
	}

	for url, expected := range tests {
		assert.Equal(t, expected, parsePersistenceProvider(url), url)
	}
}

func TestNewPersistence(t *testing.T) {
	p, err := NewPersistence(t.Context(), slog.Default(), "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)
	assert.NoError(t, p.HealthCheck(t.Context()))

	_, err = NewPersistence(t.Context(), slog.Default(), "mysql://localhost/flowcanvas")
	assert.ErrorIs(t, err, ErrUnsupportedPersistence)
}

func TestWithCache(t *testing.T) {
	inner := file.NewPersistence(t.TempDir())

	p, err := WithCache(t.Context(), slog.Default(), inner, "")
	require.NoError(t, err)
	assert.Same(t, inner, p)

	_, err = WithCache(t.Context(), slog.Default(), inner, "not a url")
	assert.Error(t, err)

	p, err = WithCache(t.Context(), slog.Default(), inner, "redis://127.0.0.1:1/0")
	require.NoError(t, err)
	assert.IsType(t, &cache.Persistence{}, p)
}

func TestNewEventBus(t *testing.T) {
	bus, err := NewEventBus("", "", "test", slog.Default())
	require.NoError(t, err)
	assert.Nil(t, bus)

	bus, err = NewEventBus("gochannel", "", "test", slog.Default())
	require.NoError(t, err)
	require.NotNil(t, bus)
	assert.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", " , ", "test", slog.Default())
	assert.ErrorIs(t, err, kafka.ErrNoBrokers)

	_, err = NewEventBus("rabbitmq", "", "test", slog.Default())
	assert.Error(t, err)
}

func TestListenForInvalidations(t *testing.T) {
	inner := file.NewPersistence(t.TempDir())

	bus := &mocks.MockEventBus{}
	require.NoError(t, ListenForInvalidations(t.Context(), inner, bus))
	require.NoError(t, ListenForInvalidations(t.Context(), inner, nil))
	bus.AssertNotCalled(t, "Subscribe", mock.Anything)

	cached, err := WithCache(t.Context(), slog.Default(), inner, "redis://127.0.0.1:1/0")
	require.NoError(t, err)

	bus.On("Handle", events.WorkflowSavedEvent, mock.Anything).Return(nil)
	bus.On("Handle", events.WorkflowDeletedEvent, mock.Anything).Return(nil)
	bus.On("Subscribe", mock.Anything).Return(nil)

	require.NoError(t, ListenForInvalidations(t.Context(), cached, bus))
	bus.AssertExpectations(t)
}

func TestNewTracer_Disabled(t *testing.T) {
	tracer, shutdown, err := NewTracer(t.Context(), false, "test")
	require.NoError(t, err)
	assert.NotNil(t, tracer)
	assert.NoError(t, shutdown(t.Context()))
}
