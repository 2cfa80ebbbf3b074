// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/dukex/flowcanvas/pkg/schema"
	"github.com/dukex/flowcanvas/pkg/services"
	"github.com/gofiber/fiber/v3"
)

// OwnerHeader carries the identity set by the upstream identity provider.
const OwnerHeader = "X-User-ID"

const ownerKey = "ownerID"

type APIHandlers struct {
	workflowService *services.Workflow
	logger          *slog.Logger
}

func NewAPIHandlers(workflowService *services.Workflow, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		workflowService: workflowService,
		logger:          logger,
	}
}

// RequireOwner rejects requests without an owner identity and stores it for
// the handlers.
func RequireOwner() fiber.Handler {
	return func(c fiber.Ctx) error {
		owner := strings.TrimSpace(c.Get(OwnerHeader))
		if owner == "" {
			return unauthorized(c)
		}

		c.Locals(ownerKey, owner)

		return c.Next()
	}
}

func ownerID(c fiber.Ctx) string {
	owner, _ := c.Locals(ownerKey).(string)

	return owner
}

func (h *APIHandlers) fail(c fiber.Ctx, op string, err error) error {
	if !services.IsValidationError(err) && !services.IsWorkflowNotFound(err) && !services.IsUnauthorized(err) {
		h.logger.ErrorContext(c.Context(), "Request failed",
			"op", op,
			"path", c.Path(),
			"error", err,
		)
	}

	return handleServiceError(c, err)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	summaries, err := h.workflowService.List(c.Context(), ownerID(c))
	if err != nil {
		return h.fail(c, "list", err)
	}

	if summaries == nil {
		summaries = []*models.WorkflowSummary{}
	}

	return c.JSON(summaries)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	record, err := h.workflowService.Get(c.Context(), ownerID(c), id)
	if err != nil {
		return h.fail(c, "get", err)
	}

	return c.JSON(NewWorkflowResponse(record))
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	created, err := h.workflowService.Create(c.Context(), ownerID(c), services.CreateWorkflowRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return h.fail(c, "create", err)
	}

	return c.Status(fiber.StatusCreated).JSON(NewWorkflowHeader(created))
}

// UpdateWorkflow saves a workflow: header fields present in the body are
// updated and every list present replaces the stored one.
func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req SaveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	header, err := h.workflowService.Save(c.Context(), ownerID(c), id, req.toService())
	if err != nil {
		return h.fail(c, "save", err)
	}

	return c.JSON(NewWorkflowHeader(header))
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.workflowService.Delete(c.Context(), ownerID(c), id); err != nil {
		return h.fail(c, "delete", err)
	}

	return c.JSON(MessageResponse{Message: "Workflow deleted successfully"})
}

func (h *APIHandlers) GetDashboard(c fiber.Ctx) error {
	stats, err := h.workflowService.Dashboard(c.Context(), ownerID(c))
	if err != nil {
		return h.fail(c, "dashboard", err)
	}

	return c.JSON(stats)
}

// GetNodeTypes lists the recognized node types with their handles and data
// schemas.
func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	types := make([]NodeTypeResponse, 0, len(models.KnownNodeTypes))

	for _, nodeType := range models.KnownNodeTypes {
		def, _ := schema.Definition(nodeType)

		handles := models.Handles(nodeType)
		if handles == nil {
			handles = []string{}
		}

		types = append(types, NodeTypeResponse{
			Type:      nodeType,
			Handles:   handles,
			HasSource: models.HasSource(nodeType),
			HasTarget: models.HasTarget(nodeType),
			Schema:    def,
		})
	}

	return c.JSON(types)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "flowcanvas API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "flowcanvas API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// Register mounts every route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/node-types", h.GetNodeTypes)

	router.Get("/dashboard", RequireOwner(), h.GetDashboard)

	w := router.Group("/workflows", RequireOwner())
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
}
