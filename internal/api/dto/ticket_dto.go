package dto

import (
	"time"

	"github.com/procon/attendance-service/internal/domain"
)

// IssueTicketRequest payload.
type IssueTicketRequest struct {
	ClientID string                `json:"client_id"`
	SectorID string                `json:"sector_id"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketResponse is the public view of a ticket.
type TicketResponse struct {
	ID            string                `json:"id"`
	ClientID      string                `json:"client_id"`
	SectorID      string                `json:"sector_id"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	PriorityLabel string                `json:"priority_label"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            ticket.ID,
		ClientID:      ticket.ClientID,
		SectorID:      ticket.SectorID,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		PriorityLabel: ticket.Priority.Label(),
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

// NewTicketList maps tickets.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// RegisterClientRequest payload.
type RegisterClientRequest struct {
	Name     string `json:"name"`
	Document string `json:"document"`
}

// ClientResponse is the public view of a client.
type ClientResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Document  string    `json:"document"`
	CreatedAt time.Time `json:"created_at"`
}

// NewClientResponse maps a client.
func NewClientResponse(client *domain.Client) ClientResponse {
	return ClientResponse{ID: client.ID, Name: client.Name, Document: client.Document, CreatedAt: client.CreatedAt}
}

// NewClientList maps clients.
func NewClientList(clients []domain.Client) []ClientResponse {
	out := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		out = append(out, NewClientResponse(&clients[i]))
	}
	return out
}
