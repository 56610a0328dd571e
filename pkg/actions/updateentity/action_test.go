package updateentity

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfgworks/flowgate/pkg/models"
)

type fakeUpdater struct {
	tenantID string
	entity   models.EntityRef
	fields   map[string]any
	err      error
}

func (u *fakeUpdater) UpdateFields(_ context.Context, tenantID string, entity models.EntityRef, fields map[string]any) error {
	if u.err != nil {
		return u.err
	}

	u.tenantID = tenantID
	u.entity = entity
	u.fields = fields

	return nil
}

func TestNewFactory(t *testing.T) {
	factory := NewFactory(&fakeUpdater{})
	assert.NotNil(t, factory)
	assert.Equal(t, models.ActionUpdateEntity, factory.ID())
	assert.False(t, factory.FireAndForget())
}

func TestFactory_Create(t *testing.T) {
	factory := NewFactory(&fakeUpdater{})

	tests := []struct {
		name        string
		params      map[string]any
		expectError bool
	}{
		{
			name:   "valid fields",
			params: map[string]any{"fields": map[string]any{"closed_by": "qa-lead"}},
		},
		{
			name:        "missing fields",
			params:      map[string]any{},
			expectError: true,
		},
		{
			name:        "empty fields",
			params:      map[string]any{"fields": map[string]any{}},
			expectError: true,
		},
		{
			name:        "fields not an object",
			params:      map[string]any{"fields": "closed_by=qa-lead"},
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
	updater := &fakeUpdater{}
	factory := NewFactory(updater)

	handler, err := factory.Create(map[string]any{
		"fields": map[string]any{"resolution": "rework", "closed": true},
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	actionCtx := models.ActionContext{
		TenantID: "tenant-1",
		Entity:   models.EntityRef{Type: models.EntityTypeNCR, ID: "ncr-9"},
		ActorID:  "user-1",
	}

	result, err := handler.Execute(context.Background(), actionCtx, logger)
	require.NoError(t, err)

	assert.Equal(t, "tenant-1", updater.tenantID)
	assert.Equal(t, "ncr-9", updater.entity.ID)
	assert.Equal(t, "rework", updater.fields["resolution"])
	assert.Equal(t, updater.fields, result["updated_fields"])
}

func TestHandler_Execute_UpdaterError(t *testing.T) {
	factory := NewFactory(&fakeUpdater{err: errors.New("entity locked")})

	handler, err := factory.Create(map[string]any{
		"fields": map[string]any{"resolution": "scrap"},
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	_, err = handler.Execute(context.Background(), models.ActionContext{}, logger)
	require.Error(t, err)
}
