package cmd_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mfgworks/flowgate/pkg/cmd"
	"github.com/mfgworks/flowgate/pkg/mocks"
	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/persistence/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewPersistence_DefaultsToMemory(t *testing.T) {
	ctx := context.Background()

	for _, url := range []string{"", "file:///tmp/flowgate", "not-a-url"} {
		p, err := cmd.NewPersistence(ctx, testLogger(), url)
		require.NoError(t, err)

		_, ok := p.(*memory.Persistence)
		assert.True(t, ok, "url %q should select the memory store", url)
	}
}

func TestNewEventBus_GoChannel(t *testing.T) {
	bus := cmd.NewEventBus("gochannel", testLogger())
	require.NotNil(t, bus)
	require.NoError(t, bus.Close())
}

func TestNewEventBus_UnsupportedProviderPanics(t *testing.T) {
	assert.Panics(t, func() {
		cmd.NewEventBus("rabbitmq", testLogger())
	})
}

func TestNewRegistry_NativeActions(t *testing.T) {
	bus := &mocks.MockEventBus{}
	reg := cmd.NewRegistry(testLogger(), bus, nil)

	for _, name := range []string{models.ActionSendNotification, models.ActionAssignTo, models.ActionUpdateEntity} {
		_, ok := reg.Factory(name)
		assert.True(t, ok, name)
	}

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	handler, err := reg.CreateHandler(models.ActionSendNotification, map[string]any{"message": "hello"})
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), models.ActionContext{
		TenantID: "tenant-1",
		Entity:   models.EntityRef{Type: models.EntityTypeNCR, ID: "NCR-1"},
	}, testLogger())
	require.NoError(t, err)

	bus.AssertExpectations(t)
}

func TestNewRegistry_UpdateEntityWithoutUpdater(t *testing.T) {
	reg := cmd.NewRegistry(testLogger(), &mocks.MockEventBus{}, nil)

	_, err := reg.CreateHandler(models.ActionUpdateEntity, map[string]any{
		"fields": map[string]any{"status": "released"},
	})
	require.Error(t, err)
}
