// Package protocol defines the contracts between the engine and the action
// handlers supplied by the surrounding application.
package protocol

import (
	"context"
	"log/slog"

	"github.com/mfgworks/flowgate/pkg/models"
)

// ActionHandler performs one declarative side effect. Handlers receive the
// descriptor's params and the context of the entity being transitioned; they
// never touch workflow state themselves.
type ActionHandler interface {
	Execute(ctx context.Context, actionCtx models.ActionContext, logger *slog.Logger) (map[string]any, error)
}

// ActionHandlerFactory creates handlers for one action name.
type ActionHandlerFactory interface {
	// ID is the action name descriptors refer to, e.g. "send_notification".
	ID() string

	// FireAndForget marks handlers whose failures must not abort the
	// transition. Their errors are reported in the response message only.
	FireAndForget() bool

	// Schema returns the JSON schema descriptor params are validated
	// against before a handler is created.
	Schema() map[string]any

	Create(params map[string]any) (ActionHandler, error)
}
