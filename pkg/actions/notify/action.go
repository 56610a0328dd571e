// Package notify implements the send_notification action. Delivery is not
// performed here: the handler publishes a notification.requested event and
// leaves transport (e-mail, push, chat) to external consumers.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mfgworks/flowgate/pkg/eventbus"
	"github.com/mfgworks/flowgate/pkg/events"
	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/protocol"
)

type Factory struct {
	publisher eventbus.EventPublisher
}

func NewFactory(publisher eventbus.EventPublisher) *Factory {
	return &Factory{publisher: publisher}
}

func (*Factory) ID() string {
	return models.ActionSendNotification
}

// FireAndForget is true: a failed notification never aborts a transition.
func (*Factory) FireAndForget() bool {
	return true
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Notification body shown to recipients",
			},
			"subject": map[string]any{
				"type": "string",
			},
			"channel": map[string]any{
				"type":    "string",
				"default": "email",
				"enum":    []string{"email", "push", "chat"},
			},
			"recipients": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"message"},
	}
}

func (f *Factory) Create(params map[string]any) (protocol.ActionHandler, error) {
	if f.publisher == nil {
		return nil, errors.New("notify: event publisher not configured")
	}

	handler := &Handler{publisher: f.publisher, channel: "email"}

	if message, ok := params["message"].(string); ok {
		handler.message = message
	}

	if subject, ok := params["subject"].(string); ok {
		handler.subject = subject
	}

	if channel, ok := params["channel"].(string); ok && channel != "" {
		handler.channel = channel
	}

	if recipients, ok := params["recipients"].([]any); ok {
		for _, recipient := range recipients {
			if s, isString := recipient.(string); isString {
				handler.recipients = append(handler.recipients, s)
			}
		}
	}

	return handler, nil
}

type Handler struct {
	publisher  eventbus.EventPublisher
	message    string
	subject    string
	channel    string
	recipients []string
}

func (h *Handler) Execute(ctx context.Context, actionCtx models.ActionContext, logger *slog.Logger) (map[string]any, error) {
	event := events.NotificationRequested{
		BaseEvent:  events.NewBaseEvent(events.NotificationRequestedEvent, actionCtx.TenantID, actionCtx.Entity),
		Channel:    h.channel,
		Recipients: h.recipients,
		Subject:    h.subject,
		Message:    h.message,
	}

	err := h.publisher.Publish(ctx, actionCtx.Entity.String(), event)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Notification requested", "channel", h.channel, "recipients", len(h.recipients))

	return map[string]any{
		"channel":    h.channel,
		"recipients": h.recipients,
	}, nil
}
