package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/procon/attendance-service/internal/panel"
	"github.com/procon/attendance-service/internal/service"
)

// PanelHandler serves the public "now calling" roster.
type PanelHandler struct {
	service *service.PanelService
}

// NewPanelHandler constructs handler.
func NewPanelHandler(panelService *service.PanelService) *PanelHandler {
	return &PanelHandler{service: panelService}
}

// LastCalled GET /api/panel/last-called.
func (h *PanelHandler) LastCalled(c *fiber.Ctx) error {
	roster, err := h.service.LastCalled(c.UserContext())
	if err != nil {
		return err
	}
	if roster == nil {
		roster = []panel.Entry{}
	}
	return c.JSON(fiber.Map{"data": roster})
}
