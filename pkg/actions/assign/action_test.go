package assign

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfgworks/flowgate/pkg/eventbus"
	"github.com/mfgworks/flowgate/pkg/events"
	"github.com/mfgworks/flowgate/pkg/models"
)

type capturingPublisher struct {
	published []eventbus.Event
}

func (p *capturingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.published = append(p.published, event)

	return nil
}

func TestNewFactory(t *testing.T) {
	factory := NewFactory(&capturingPublisher{})
	assert.NotNil(t, factory)
	assert.Equal(t, models.ActionAssignTo, factory.ID())
	assert.False(t, factory.FireAndForget())
}

func TestFactory_Create(t *testing.T) {
	factory := NewFactory(&capturingPublisher{})

	tests := []struct {
		name        string
		params      map[string]any
		expectError bool
	}{
		{
			name:   "user only",
			params: map[string]any{"user_id": "u-1"},
		},
		{
			name:   "role only",
			params: map[string]any{"role": "planner"},
		},
		{
			name:   "both",
			params: map[string]any{"user_id": "u-1", "role": "planner"},
		},
		{
			name:        "neither",
			params:      map[string]any{},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := factory.Create(tt.params)
			if tt.expectError {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, handler)
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	publisher := &capturingPublisher{}
	factory := NewFactory(publisher)

	handler, err := factory.Create(map[string]any{"role": "quality_manager"})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	actionCtx := models.ActionContext{
		TenantID: "tenant-1",
		Entity:   models.EntityRef{Type: models.EntityTypeWorkOrder, ID: "wo-3"},
		ActorID:  "supervisor-5",
	}

	result, err := handler.Execute(context.Background(), actionCtx, logger)
	require.NoError(t, err)
	assert.Equal(t, "quality_manager", result["assignee_role"])

	require.Len(t, publisher.published, 1)

	event, ok := publisher.published[0].(events.EntityAssigned)
	require.True(t, ok)
	assert.Equal(t, events.EntityAssignedEvent, event.GetType())
	assert.Equal(t, "supervisor-5", event.AssignedBy)
	assert.Equal(t, "quality_manager", event.AssigneeRole)
	assert.Empty(t, event.AssigneeID)
}
