// Package registry routes declarative action descriptors to their named
// handlers and validates descriptor params against handler schemas.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mfgworks/flowgate/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.ActionHandlerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.ActionHandlerFactory),
	}
}

func (r *Registry) Register(factory protocol.ActionHandlerFactory) {
	r.factories[factory.ID()] = factory
}

// Factory returns the registered factory for an action name, if any.
func (r *Registry) Factory(actionName string) (protocol.ActionHandlerFactory, bool) {
	factory, ok := r.factories[actionName]

	return factory, ok
}

// CreateHandler validates params against the factory's schema and builds a
// handler instance.
func (r *Registry) CreateHandler(actionName string, params map[string]any) (protocol.ActionHandler, error) {
	factory, ok := r.factories[actionName]
	if !ok {
		return nil, fmt.Errorf("action %q not registered", actionName)
	}

	if err := validateParams(factory.Schema(), params); err != nil {
		return nil, fmt.Errorf("invalid params for action %q: %w", actionName, err)
	}

	return factory.Create(params)
}

func (r *Registry) HealthCheck() (string, bool) {
	if len(r.factories) == 0 {
		return "No action handlers registered", false
	}

	return fmt.Sprintf("%d action handlers registered", len(r.factories)), true
}

func validateParams(schema map[string]any, params map[string]any) error {
	if schema == nil {
		return nil
	}

	if params == nil {
		params = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	paramsLoader := gojsonschema.NewGoLoader(params)

	result, err := gojsonschema.Validate(schemaLoader, paramsLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(descriptions, "; "))
	}

	return nil
}
