package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mfgworks/flowgate/pkg/models"
)

// DispatchResult reports what a dispatch run did. Fire-and-forget handler
// failures never abort the run but are collected here so the caller can
// surface them in its response message.
type DispatchResult struct {
	Executed int
	Skipped  []string
	Failures []string
}

// Dispatch invokes the handler for each descriptor in list order. Handlers
// declared fire-and-forget may fail without aborting the run; any other
// handler error stops the run and is returned. Unregistered action names are
// skipped so workflow configuration can reference actions before their
// handlers ship. The create_approval action is owned by the transition
// executor, which needs transactional context, and is skipped here.
func (r *Registry) Dispatch(ctx context.Context, descriptors []models.ActionDescriptor, actionCtx models.ActionContext) (*DispatchResult, error) {
	result := &DispatchResult{}

	for _, descriptor := range descriptors {
		logger := r.logger.With(
			slog.String("action", descriptor.Action),
			slog.String("entity", actionCtx.Entity.String()),
		)

		if descriptor.Action == models.ActionCreateApproval {
			result.Skipped = append(result.Skipped, descriptor.Action)

			continue
		}

		factory, ok := r.factories[descriptor.Action]
		if !ok {
			logger.DebugContext(ctx, "Skipping unregistered action")
			result.Skipped = append(result.Skipped, descriptor.Action)

			continue
		}

		handler, err := r.CreateHandler(descriptor.Action, descriptor.Params)
		if err != nil {
			if factory.FireAndForget() {
				logger.WarnContext(ctx, "Fire-and-forget action rejected its params", "error", err)
				result.Failures = append(result.Failures, fmt.Sprintf("%s: %v", descriptor.Action, err))

				continue
			}

			return result, fmt.Errorf("failed to create handler for action %q: %w", descriptor.Action, err)
		}

		_, err = handler.Execute(ctx, actionCtx, logger)
		if err != nil {
			if factory.FireAndForget() {
				logger.WarnContext(ctx, "Fire-and-forget action failed", "error", err)
				result.Failures = append(result.Failures, fmt.Sprintf("%s: %v", descriptor.Action, err))

				continue
			}

			return result, fmt.Errorf("action %q failed: %w", descriptor.Action, err)
		}

		result.Executed++
	}

	return result, nil
}
