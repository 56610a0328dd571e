package cmd

import (
	"log/slog"

	"github.com/mfgworks/flowgate/pkg/actions/assign"
	"github.com/mfgworks/flowgate/pkg/actions/notify"
	"github.com/mfgworks/flowgate/pkg/actions/updateentity"
	"github.com/mfgworks/flowgate/pkg/eventbus"
	"github.com/mfgworks/flowgate/pkg/registry"
)

// NewRegistry builds the action registry with the native action handlers.
// The entity updater is optional: without it the update_entity action fails
// at handler creation, which is the right outcome for deployments that never
// bind one.
func NewRegistry(logger *slog.Logger, publisher eventbus.EventPublisher, updater updateentity.EntityUpdater) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(notify.NewFactory(publisher))
	reg.Register(assign.NewFactory(publisher))
	reg.Register(updateentity.NewFactory(updater))

	return reg
}
