// Package assign implements the assign_to action, which publishes an
// entity.assigned event routing the entity to a user or role.
package assign

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
	return models.ActionAssignTo
}

func (*Factory) FireAndForget() bool {
	return false
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]any{
				"type":        "string",
				"description": "User to assign the entity to",
			},
			"role": map[string]any{
				"type":        "string",
				"description": "Role to assign the entity to when no user is given",
			},
		},
		"anyOf": []any{
			map[string]any{"required": []string{"user_id"}},
			map[string]any{"required": []string{"role"}},
		},
	}
}

func (f *Factory) Create(params map[string]any) (protocol.ActionHandler, error) {
	if f.publisher == nil {
		return nil, errors.New("assign: event publisher not configured")
	}

	handler := &Handler{publisher: f.publisher}

	if userID, ok := params["user_id"].(string); ok {
		handler.userID = userID
	}

	if role, ok := params["role"].(string); ok {
		handler.role = role
	}

	if handler.userID == "" && handler.role == "" {
		return nil, errors.New("assign: either 'user_id' or 'role' is required")
	}

	return handler, nil
}

type Handler struct {
	publisher eventbus.EventPublisher
	userID    string
	role      string
}

func (h *Handler) Execute(ctx context.Context, actionCtx models.ActionContext, logger *slog.Logger) (map[string]any, error) {
	event := events.EntityAssigned{
		BaseEvent:    events.NewBaseEvent(events.EntityAssignedEvent, actionCtx.TenantID, actionCtx.Entity),
		AssigneeID:   h.userID,
		AssigneeRole: h.role,
		AssignedBy:   actionCtx.ActorID,
	}

	err := h.publisher.Publish(ctx, actionCtx.Entity.String(), event)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Entity assigned", "entity", actionCtx.Entity.String(), "user_id", h.userID, "role", h.role)

	return map[string]any{
		"assignee_id":   h.userID,
		"assignee_role": h.role,
	}, nil
}
