// Package web provides HTTP handlers and REST API endpoints for the workflow
// and approval engine.
package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/mfgworks/flowgate/pkg/models"
	"github.com/mfgworks/flowgate/pkg/registry"
	"github.com/mfgworks/flowgate/pkg/services"
)

const (
	headerTenantID  = "X-Tenant-ID"
	headerUserID    = "X-User-ID"
	headerUserRoles = "X-User-Roles"
)

type APIHandlers struct {
	definitions *services.Definitions
	executor    *services.Executor
	approvals   *services.Approvals
	history     *services.History
	validator   *validator.Validate
	registry    *registry.Registry
}

func NewAPIHandlers(
	definitions *services.Definitions,
	executor *services.Executor,
	approvals *services.Approvals,
	history *services.History,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		definitions: definitions,
		executor:    executor,
		approvals:   approvals,
		history:     history,
		validator:   validator,
		registry:    registry,
	}
}

// tenantID extracts the caller's tenant from the request headers. Every
// endpoint except the health check requires it.
func tenantID(c fiber.Ctx) string {
	return c.Get(headerTenantID)
}

func actorID(c fiber.Ctx) string {
	return c.Get(headerUserID)
}

func actorRoles(c fiber.Ctx) []string {
	header := c.Get(headerUserRoles)
	if header == "" {
		return nil
	}

	parts := strings.Split(header, ",")
	roles := make([]string, 0, len(parts))

	for _, part := range parts {
		if role := strings.TrimSpace(part); role != "" {
			roles = append(roles, role)
		}
	}

	return roles
}

func entityRef(c fiber.Ctx) models.EntityRef {
	return models.EntityRef{
		Type: models.EntityType(c.Params("entityType")),
		ID:   c.Params("entityID"),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.definitions.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowgate API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Flowgate API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	workflows, err := h.definitions.ListWorkflows(c.Context(), tenant, models.EntityType(c.Query("entity_type")))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.Workflow{
		TenantID:   tenant,
		Name:       req.Name,
		Code:       req.Code,
		EntityType: models.EntityType(req.EntityType),
		IsDefault:  req.IsDefault,
		IsActive:   req.IsActive == nil || *req.IsActive,
		Config:     req.Config,
	}

	created, err := h.definitions.CreateWorkflow(c.Context(), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	workflow, err := h.definitions.GetWorkflow(c.Context(), tenant, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) PatchWorkflow(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.definitions.GetWorkflow(c.Context(), tenant, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		workflow.Name = *req.Name
	}

	if req.IsDefault != nil {
		workflow.IsDefault = *req.IsDefault
	}

	if req.IsActive != nil {
		workflow.IsActive = *req.IsActive
	}

	if req.Config != nil {
		workflow.Config = req.Config
	}

	updated, err := h.definitions.UpdateWorkflow(c.Context(), workflow)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	err := h.definitions.DeleteWorkflow(c.Context(), tenant, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflowStates(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	states, err := h.definitions.States(c.Context(), tenant, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(states)
}

func (h *APIHandlers) CreateWorkflowState(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req CreateStateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	state := &models.WorkflowState{
		WorkflowID:       c.Params("id"),
		Code:             req.Code,
		Name:             req.Name,
		Type:             models.StateType(req.Type),
		Color:            req.Color,
		Icon:             req.Icon,
		Position:         req.Position,
		RequiresApproval: req.RequiresApproval,
		EntryActions:     req.EntryActions,
		Metadata:         req.Metadata,
		IsActive:         req.IsActive == nil || *req.IsActive,
	}

	created, err := h.definitions.AddState(c.Context(), tenant, state)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) PatchWorkflowState(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req UpdateStateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	state, err := h.findState(c, tenant)
	if err != nil {
		return handleServiceError(c, err)
	}

	if state == nil {
		return notFound(c, "state not found")
	}

	if req.Name != nil {
		state.Name = *req.Name
	}

	if req.Color != nil {
		state.Color = *req.Color
	}

	if req.Icon != nil {
		state.Icon = *req.Icon
	}

	if req.Position != nil {
		state.Position = *req.Position
	}

	if req.RequiresApproval != nil {
		state.RequiresApproval = *req.RequiresApproval
	}

	if req.EntryActions != nil {
		state.EntryActions = req.EntryActions
	}

	if req.Metadata != nil {
		state.Metadata = req.Metadata
	}

	if req.IsActive != nil {
		state.IsActive = *req.IsActive
	}

	updated, err := h.definitions.UpdateState(c.Context(), tenant, state)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflowState(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	err := h.definitions.DeleteState(c.Context(), tenant, c.Params("stateID"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) findState(c fiber.Ctx, tenant string) (*models.WorkflowState, error) {
	states, err := h.definitions.States(c.Context(), tenant, c.Params("id"))
	if err != nil {
		return nil, err
	}

	stateID := c.Params("stateID")
	for _, state := range states {
		if state.ID == stateID {
			return state, nil
		}
	}

	return nil, nil
}

func (h *APIHandlers) GetWorkflowTransitions(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	transitions, err := h.definitions.Transitions(c.Context(), tenant, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(transitions)
}

func (h *APIHandlers) CreateWorkflowTransition(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req CreateTransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	transition := &models.WorkflowTransition{
		WorkflowID:       c.Params("id"),
		FromStateID:      req.FromStateID,
		ToStateID:        req.ToStateID,
		Code:             req.Code,
		Name:             req.Name,
		RequiresApproval: req.RequiresApproval,
		RequiresComment:  req.RequiresComment,
		Conditions:       req.Conditions,
		PreActions:       req.PreActions,
		PostActions:      req.PostActions,
		Position:         req.Position,
		IsActive:         req.IsActive == nil || *req.IsActive,
	}

	created, err := h.definitions.AddTransition(c.Context(), tenant, transition)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) PatchWorkflowTransition(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req UpdateTransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	transition, err := h.findTransition(c, tenant)
	if err != nil {
		return handleServiceError(c, err)
	}

	if transition == nil {
		return notFound(c, "transition not found")
	}

	if req.Name != nil {
		transition.Name = *req.Name
	}

	if req.RequiresApproval != nil {
		transition.RequiresApproval = *req.RequiresApproval
	}

	if req.RequiresComment != nil {
		transition.RequiresComment = *req.RequiresComment
	}

	if req.Conditions != nil {
		transition.Conditions = req.Conditions
	}

	if req.PreActions != nil {
		transition.PreActions = req.PreActions
	}

	if req.PostActions != nil {
		transition.PostActions = req.PostActions
	}

	if req.Position != nil {
		transition.Position = *req.Position
	}

	if req.IsActive != nil {
		transition.IsActive = *req.IsActive
	}

	updated, err := h.definitions.UpdateTransition(c.Context(), tenant, transition)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflowTransition(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	err := h.definitions.DeleteTransition(c.Context(), tenant, c.Params("transitionID"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) findTransition(c fiber.Ctx, tenant string) (*models.WorkflowTransition, error) {
	transitions, err := h.definitions.Transitions(c.Context(), tenant, c.Params("id"))
	if err != nil {
		return nil, err
	}

	transitionID := c.Params("transitionID")
	for _, transition := range transitions {
		if transition.ID == transitionID {
			return transition, nil
		}
	}

	return nil, nil
}

func (h *APIHandlers) StartWorkflow(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req StartWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	result, err := h.executor.StartWorkflow(c.Context(), services.StartWorkflowRequest{
		TenantID:     tenant,
		Entity:       entityRef(c),
		WorkflowCode: req.WorkflowCode,
		ActorID:      actorID(c),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) ExecuteTransition(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req ExecuteTransitionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	result, err := h.executor.ExecuteTransition(c.Context(), services.ExecuteTransitionRequest{
		TenantID:     tenant,
		Entity:       entityRef(c),
		TransitionID: c.Params("transitionID"),
		ActorID:      actorID(c),
		ActorRoles:   actorRoles(c),
		EntityData:   req.EntityData,
		Comment:      req.Comment,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ValidateTransition(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req ValidateTransitionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	roles := req.ActorRoles
	if roles == nil {
		roles = actorRoles(c)
	}

	result, err := h.executor.ValidateTransition(c.Context(), tenant, c.Params("transitionID"), req.EntityData, roles)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetEntityStatus(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	status, err := h.executor.Status(c.Context(), tenant, entityRef(c), nil, actorRoles(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) GetEntityHistory(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		return badRequest(c, "Invalid pagination parameters: "+err.Error())
	}

	entries, err := h.history.EntityHistory(c.Context(), tenant, entityRef(c), limit, offset)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(entries)
}

func parsePagination(c fiber.Ctx) (limit, offset int, err error) {
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}
	}

	return limit, offset, nil
}

func (h *APIHandlers) AddEntityComment(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req AddCommentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	entry, err := h.history.AddComment(c.Context(), tenant, entityRef(c), actorID(c), req.Comment)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (h *APIHandlers) GetEntityApprovals(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	approvals, err := h.approvals.PendingForEntity(c.Context(), tenant, entityRef(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(approvals)
}

func (h *APIHandlers) CreateApproval(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req RequestApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	request := services.ApprovalRequest{
		TenantID: tenant,
		Entity: models.EntityRef{
			Type: models.EntityType(req.EntityType),
			ID:   req.EntityID,
		},
		Type:           req.Type,
		Title:          req.Title,
		Description:    req.Description,
		ApproverUserID: req.ApproverUserID,
		ApproverRole:   req.ApproverRole,
		Priority:       models.ApprovalPriority(req.Priority),
		RequestedBy:    actorID(c),
		Metadata:       req.Metadata,
	}

	if req.DueHours > 0 {
		due := time.Now().UTC().Add(time.Duration(req.DueHours * float64(time.Hour)))
		request.DueAt = &due
	}

	approval, err := h.approvals.RequestStandalone(c.Context(), request)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(approval)
}

func (h *APIHandlers) GetPendingApprovals(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	userID := actorID(c)
	roles := actorRoles(c)

	if userID == "" && len(roles) == 0 {
		return badRequest(c, "X-User-ID or X-User-Roles header is required")
	}

	approvals, err := h.approvals.Pending(c.Context(), tenant, userID, roles)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(approvals)
}

func (h *APIHandlers) GetApproval(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	approval, err := h.approvals.Get(c.Context(), tenant, c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(approval)
}

func (h *APIHandlers) DecideApproval(c fiber.Ctx) error {
	tenant := tenantID(c)
	if tenant == "" {
		return badRequest(c, "X-Tenant-ID header is required")
	}

	var req DecideApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.executor.ProcessApproval(c.Context(), services.ProcessApprovalRequest{
		TenantID:   tenant,
		ApprovalID: c.Params("id"),
		ActorID:    actorID(c),
		ActorRoles: actorRoles(c),
		Approved:   *req.Approved,
		Comment:    req.Comment,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}
