package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/procon/attendance-service/internal/api/dto"
	"github.com/procon/attendance-service/internal/service"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

// OperationsHandler exposes shift lifecycle endpoints.
type OperationsHandler struct {
	service *service.OperationService
}

// NewOperationsHandler constructs handler.
func NewOperationsHandler(operationService *service.OperationService) *OperationsHandler {
	return &OperationsHandler{service: operationService}
}

// Start POST /api/operations.
func (h *OperationsHandler) Start(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.StartOperationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	op, err := h.service.Start(c.UserContext(), caller, req.ServicePointID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOperationResponse(op)})
}

// Finish POST /api/operations/:id/finish.
func (h *OperationsHandler) Finish(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	op, err := h.service.Finish(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOperationResponse(op)})
}

// Active GET /api/operations/active.
func (h *OperationsHandler) Active(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	op, err := h.service.Active(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOperationResponse(op)})
}

// RecordPause POST /api/operations/:id/pauses.
func (h *OperationsHandler) RecordPause(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.PauseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	pause, err := h.service.RecordPause(c.UserContext(), caller, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPauseResponse(pause)})
}

// ListPauses GET /api/operations/:id/pauses.
func (h *OperationsHandler) ListPauses(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	pauses, err := h.service.ListPauses(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPauseList(pauses)})
}

// ListServicePoints GET /api/service-points.
func (h *OperationsHandler) ListServicePoints(c *fiber.Ctx) error {
	points, err := h.service.ListServicePoints(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewServicePointList(points)})
}
