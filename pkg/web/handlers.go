package web

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/clearway/clearway/pkg/approval"
	"github.com/clearway/clearway/pkg/models"
	"github.com/clearway/clearway/pkg/orchestrator"
	"github.com/clearway/clearway/pkg/services"
)

type APIHandlers struct {
	requestService *services.Request
	validator      *validator.Validate
}

func NewAPIHandlers(requestService *services.Request, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		requestService: requestService,
		validator:      validator,
	}
}

// RegisterRoutes mounts the API routes on the app.
func (h *APIHandlers) RegisterRoutes(app *fiber.App) {
	requests := app.Group("/requests")
	requests.Post("/", h.SubmitRequest)
	requests.Get("/", h.ListRequests)
	requests.Get("/:id", h.GetRequest)
	requests.Get("/:id/audit", h.GetAuditTrail)
	requests.Post("/:id/decision", h.Decide)
	requests.Post("/:id/resubmit", h.Resubmit)
	requests.Post("/:id/cancel", h.Cancel)
	requests.Post("/:id/deployment-failed", h.DeploymentFailed)

	app.Post("/tasks/:id/callback", h.TaskCallback)
	app.Get("/frameworks", h.ListFrameworks)
	app.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	message, healthy := h.requestService.HealthCheck(c.Context())
	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"detail": message,
		})
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
		"detail": message,
	})
}

func (h *APIHandlers) SubmitRequest(c fiber.Ctx) error {
	var body SubmitRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid JSON payload: "+err.Error())
	}

	if err := h.validator.Struct(&body); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	request, err := h.requestService.Submit(c.Context(), body.ToModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(request)
}

func (h *APIHandlers) ListRequests(c fiber.Ctx) error {
	requests, err := h.requestService.List(c.Context(), models.RequestStatus(c.Query("status")))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"requests":    requests,
		"total_count": len(requests),
	})
}

func (h *APIHandlers) GetRequest(c fiber.Ctx) error {
	details, err := h.requestService.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(details)
}

func (h *APIHandlers) GetAuditTrail(c fiber.Ctx) error {
	trail, err := h.requestService.AuditTrail(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"entries":     trail,
		"total_count": len(trail),
	})
}

func (h *APIHandlers) Decide(c fiber.Ctx) error {
	var body DecisionRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid JSON payload: "+err.Error())
	}

	if err := h.validator.Struct(&body); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	request, err := h.requestService.Decide(c.Context(), &services.DecideInput{
		RequestID: c.Params("id"),
		Decision:  approval.Decision(body.Decision),
		Stage:     body.Stage,
		Reviewer:  body.Reviewer,
		Reason:    body.Reason,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) Resubmit(c fiber.Ctx) error {
	var body SubmitRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid JSON payload: "+err.Error())
	}

	if err := h.validator.Struct(&body); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	request, err := h.requestService.Resubmit(c.Context(), c.Params("id"), body.ToModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) Cancel(c fiber.Ctx) error {
	var body CancelRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid JSON payload: "+err.Error())
	}

	if err := h.validator.Struct(&body); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	request, err := h.requestService.Cancel(c.Context(), c.Params("id"), body.Actor, body.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) TaskCallback(c fiber.Ctx) error {
	var body TaskCallbackRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid JSON payload: "+err.Error())
	}

	if err := h.validator.Struct(&body); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	task, err := h.requestService.TaskCallback(c.Context(), &orchestrator.Callback{
		TaskID:      c.Params("id"),
		Status:      models.TaskStatus(body.Status),
		ActualHours: body.ActualHours,
		Comment:     body.Comment,
		Actor:       body.Actor,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(task)
}

func (h *APIHandlers) DeploymentFailed(c fiber.Ctx) error {
	var body DeploymentFailedRequest
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "Invalid JSON payload: "+err.Error())
	}

	if err := h.validator.Struct(&body); err != nil {
		return badRequest(c, "Validation failed: "+err.Error())
	}

	request, err := h.requestService.DeploymentFailed(c.Context(), c.Params("id"), models.Track(body.Track), body.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) ListFrameworks(c fiber.Ctx) error {
	infos := h.requestService.Frameworks()

	return c.JSON(fiber.Map{
		"frameworks":  infos,
		"total_count": len(infos),
	})
}
