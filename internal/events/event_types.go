package events

import (
	"time"

	"github.com/procon/attendance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketIssued       EventType = "ticket_issued"
	EventTicketCanceled     EventType = "ticket_canceled"
	EventTicketCalled       EventType = "ticket_called"
	EventOperationStarted   EventType = "operation_started"
	EventOperationFinished  EventType = "operation_finished"
	EventTreatmentFinished  EventType = "treatment_finished"
	EventTreatmentCancelled EventType = "treatment_cancelled"
)

// Actor identifies the staff member behind an event.
type Actor struct {
	StaffID string           `json:"staff_id,omitempty"`
	Role    domain.StaffRole `json:"role,omitempty"`
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketIssuedPayload payload.
type TicketIssuedPayload struct {
	ClientID string                `json:"client_id"`
	SectorID string                `json:"sector_id"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketCalledPayload payload.
type TicketCalledPayload struct {
	TreatmentID    string `json:"treatment_id"`
	OperationID    string `json:"operation_id"`
	ServicePointID string `json:"service_point_id"`
	SectorID       string `json:"sector_id"`
	// Display names resolved inside the claiming transaction.
	ClientName       string `json:"client_name"`
	ServicePointName string `json:"service_point_name"`
	SectorName       string `json:"sector_name"`
}

// OperationPayload payload for operation lifecycle events.
type OperationPayload struct {
	OperationID    string `json:"operation_id"`
	ServicePointID string `json:"service_point_id"`
}

// TreatmentClosedPayload payload.
type TreatmentClosedPayload struct {
	TreatmentID     string                 `json:"treatment_id"`
	Status          domain.TreatmentStatus `json:"status"`
	DurationMinutes int                    `json:"duration_minutes"`
}
