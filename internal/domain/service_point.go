package domain

import "time"

// Availability mirrors whether a service point has an active operation.
type Availability string

const (
	AvailabilityFree      Availability = "free"
	AvailabilityOperating Availability = "operating"
)

// ServicePoint is a physical staffed station.
type ServicePoint struct {
	ID           string
	Name         string
	SectorID     string
	Availability Availability
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sector groups service points and the tickets routed to them.
type Sector struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Client is the consumer a ticket was issued for.
type Client struct {
	ID        string
	Name      string
	Document  string
	CreatedAt time.Time
}
