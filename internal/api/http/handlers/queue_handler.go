package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/procon/attendance-service/internal/api/dto"
	"github.com/procon/attendance-service/internal/service"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

// QueueHandler exposes the dispatcher and the treatment closure endpoints.
type QueueHandler struct {
	dispatch   *service.DispatchService
	treatments *service.TreatmentService
}

// NewQueueHandler constructs handler.
func NewQueueHandler(dispatch *service.DispatchService, treatments *service.TreatmentService) *QueueHandler {
	return &QueueHandler{dispatch: dispatch, treatments: treatments}
}

// CallNext POST /api/queue/call-next.
func (h *QueueHandler) CallNext(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	treatment, err := h.dispatch.CallNext(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTreatmentResponse(treatment)})
}

// Current GET /api/queue/current.
func (h *QueueHandler) Current(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	treatment, err := h.dispatch.Current(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTreatmentResponse(treatment)})
}

// GetTreatment GET /api/treatments/:id.
func (h *QueueHandler) GetTreatment(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	treatment, err := h.treatments.Get(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTreatmentResponse(treatment)})
}

// FinishTreatment POST /api/treatments/:id/finish.
func (h *QueueHandler) FinishTreatment(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.FinishTreatmentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	var resolution *service.ResolutionInput
	if req.Resolution != nil {
		resolution = &service.ResolutionInput{
			Kind:              req.Resolution.Kind,
			CaseNumber:        req.Resolution.CaseNumber,
			AuthorizationFile: req.Resolution.AuthorizationFile,
		}
	}

	outcome, err := h.treatments.Finish(c.UserContext(), caller, c.Params("id"), resolution)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewFinishTreatmentResponse(outcome.Treatment, outcome.Resolution)})
}

// CancelTreatment POST /api/treatments/:id/cancel.
func (h *QueueHandler) CancelTreatment(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	treatment, err := h.treatments.Cancel(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTreatmentResponse(treatment)})
}
