// Package updateentity implements the update_entity action, which writes a
// fixed set of field values back onto the entity that triggered a transition.
package updateentity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/protocol"
)

// EntityUpdater applies field updates to the owning system's entity record.
// The engine does not store entity data itself, so the binding is injected by
// the host application.
type EntityUpdater interface {
	UpdateFields(ctx context.Context, tenantID string, entity models.EntityRef, fields map[string]any) error
}

type Factory struct {
	updater EntityUpdater
}

func NewFactory(updater EntityUpdater) *Factory {
	return &Factory{updater: updater}
}

func (*Factory) ID() string {
	return models.ActionUpdateEntity
}

// FireAndForget is false: a failed entity update aborts the transition.
func (*Factory) FireAndForget() bool {
	return false
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":        "object",
				"description": "Field name to value pairs applied to the entity",
				"minProperties": 1,
			},
		},
		"required": []string{"fields"},
	}
}

func (f *Factory) Create(params map[string]any) (protocol.ActionHandler, error) {
	if f.updater == nil {
		return nil, errors.New("updateentity: entity updater not configured")
	}

	fields, ok := params["fields"].(map[string]any)
	if !ok || len(fields) == 0 {
		return nil, errors.New("updateentity: 'fields' must be a non-empty object")
	}

	return &Handler{updater: f.updater, fields: fields}, nil
}

type Handler struct {
	updater EntityUpdater
	fields  map[string]any
}

func (h *Handler) Execute(ctx context.Context, actionCtx models.ActionContext, logger *slog.Logger) (map[string]any, error) {
	err := h.updater.UpdateFields(ctx, actionCtx.TenantID, actionCtx.Entity, h.fields)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Entity fields updated", "entity", actionCtx.Entity.String(), "fields", len(h.fields))

	return map[string]any{"updated_fields": h.fields}, nil
}
