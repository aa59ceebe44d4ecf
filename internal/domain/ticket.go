package domain

import "time"

// TicketStatus enumerates lifecycle states for queue tickets.
type TicketStatus string

const (
	TicketStatusPending      TicketStatus = "pending"
	TicketStatusInAttendance TicketStatus = "in-attendance"
	TicketStatusFinished     TicketStatus = "finished"
	TicketStatusCanceled     TicketStatus = "canceled"
)

// TicketPriority is the ordinal priority of a ticket.
type TicketPriority int

const (
	TicketPriorityNormal   TicketPriority = 0
	TicketPriorityPriority TicketPriority = 1
)

// Label returns the text shown on the public panel.
func (p TicketPriority) Label() string {
	if p == TicketPriorityPriority {
		return "Prioritário"
	}
	return "Comum"
}

// Valid reports whether p is a known ordinal.
func (p TicketPriority) Valid() bool {
	return p == TicketPriorityNormal || p == TicketPriorityPriority
}

// Ticket is a consumer's request for walk-in service.
type Ticket struct {
	ID        string
	ClientID  string
	SectorID  string
	Status    TicketStatus
	Priority  TicketPriority
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderingPolicy decides how pending tickets are selected.
type OrderingPolicy string

const (
	// OrderingFIFO selects by creation time only; priority is informational.
	OrderingFIFO OrderingPolicy = "fifo"
	// OrderingPriority selects priority tickets first, then by creation time.
	OrderingPriority OrderingPolicy = "priority"
)

// Valid reports whether the policy is known.
func (p OrderingPolicy) Valid() bool {
	return p == OrderingFIFO || p == OrderingPriority
}
