package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/procon/attendance-service/internal/api/dto"
	"github.com/procon/attendance-service/internal/service"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

// TicketsHandler manages reception ticket and client endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// IssueTicket POST /api/tickets.
func (h *TicketsHandler) IssueTicket(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	var req dto.IssueTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ClientID == "" || req.SectorID == "" {
		return apperrors.NewValidationError("client_id and sector_id required", nil)
	}

	ticket, err := h.service.Issue(c.UserContext(), caller, service.TicketIssueInput{
		ClientID: req.ClientID,
		SectorID: req.SectorID,
		Priority: req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// CancelTicket POST /api/tickets/:id/cancel.
func (h *TicketsHandler) CancelTicket(c *fiber.Ctx) error {
	caller, err := callerFromContext(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Cancel(c.UserContext(), caller, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /api/tickets?status=pending&sector_id=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	limit, offset := parsePage(c)
	filter := service.TicketListFilter{
		Statuses: parseStatuses(c.Query("status")),
		Limit:    limit,
		Offset:   offset,
	}
	if sectorID := c.Query("sector_id"); sectorID != "" {
		filter.SectorID = &sectorID
	}
	tickets, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
}

// RegisterClient POST /api/clients.
func (h *TicketsHandler) RegisterClient(c *fiber.Ctx) error {
	var req dto.RegisterClientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	client, err := h.service.RegisterClient(c.UserContext(), req.Name, req.Document)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewClientResponse(client)})
}

// ListClients GET /api/clients.
func (h *TicketsHandler) ListClients(c *fiber.Ctx) error {
	limit, offset := parsePage(c)
	clients, err := h.service.ListClients(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClientList(clients)})
}
