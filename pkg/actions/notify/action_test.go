package notify

import (
	"context"
	"errors"
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
	keys      []string
	err       error
}

func (p *capturingPublisher) Publish(_ context.Context, key string, event eventbus.Event) error {
	if p.err != nil {
		return p.err
	}

	p.keys = append(p.keys, key)
	p.published = append(p.published, event)

	return nil
}

func TestNewFactory(t *testing.T) {
	factory := NewFactory(&capturingPublisher{})
	assert.NotNil(t, factory)
	assert.Equal(t, models.ActionSendNotification, factory.ID())
	assert.True(t, factory.FireAndForget())
}

func TestFactory_Create(t *testing.T) {
	factory := NewFactory(&capturingPublisher{})

	tests := []struct {
		name              string
		params            map[string]any
		expectedMessage   string
		expectedChannel   string
		expectedSubject   string
		expectedRecipient int
	}{
		{
			name:            "message only",
			params:          map[string]any{"message": "NCR closed"},
			expectedMessage: "NCR closed",
			expectedChannel: "email",
		},
		{
			name: "full params",
			params: map[string]any{
				"message":    "Work order released",
				"subject":    "Released",
				"channel":    "push",
				"recipients": []any{"u-1", "u-2"},
			},
			expectedMessage:   "Work order released",
			expectedChannel:   "push",
			expectedSubject:   "Released",
			expectedRecipient: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := factory.Create(tt.params)
			require.NoError(t, err)

			notifyHandler, ok := handler.(*Handler)
			require.True(t, ok)
			assert.Equal(t, tt.expectedMessage, notifyHandler.message)
			assert.Equal(t, tt.expectedChannel, notifyHandler.channel)
			assert.Equal(t, tt.expectedSubject, notifyHandler.subject)
			assert.Len(t, notifyHandler.recipients, tt.expectedRecipient)
		})
	}
}

func TestFactory_Create_NoPublisher(t *testing.T) {
	factory := NewFactory(nil)

	_, err := factory.Create(map[string]any{"message": "hi"})
	require.Error(t, err)
}

func TestHandler_Execute(t *testing.T) {
	publisher := &capturingPublisher{}
	factory := NewFactory(publisher)

	handler, err := factory.Create(map[string]any{
		"message":    "Purchase order needs review",
		"recipients": []any{"buyer-7"},
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	actionCtx := models.ActionContext{
		TenantID: "tenant-1",
		Entity:   models.EntityRef{Type: models.EntityTypePurchaseOrder, ID: "po-42"},
		ActorID:  "user-1",
	}

	result, err := handler.Execute(context.Background(), actionCtx, logger)
	require.NoError(t, err)
	assert.Equal(t, "email", result["channel"])

	require.Len(t, publisher.published, 1)
	assert.Equal(t, []string{"purchase_order/po-42"}, publisher.keys)

	event, ok := publisher.published[0].(events.NotificationRequested)
	require.True(t, ok)
	assert.Equal(t, events.NotificationRequestedEvent, event.GetType())
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.Equal(t, "Purchase order needs review", event.Message)
	assert.Equal(t, []string{"buyer-7"}, event.Recipients)
}

func TestHandler_Execute_PublishError(t *testing.T) {
	publisher := &capturingPublisher{err: errors.New("broker down")}
	factory := NewFactory(publisher)

	handler, err := factory.Create(map[string]any{"message": "hi"})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	_, err = handler.Execute(context.Background(), models.ActionContext{}, logger)
	require.Error(t, err)
}
