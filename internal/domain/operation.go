package domain

import "time"

// OperationStatus enumerates shift states.
type OperationStatus string

const (
	OperationStatusOperating OperationStatus = "operating"
	OperationStatusFinished  OperationStatus = "finished"
)

// Operation is a staff member's shift at a service point.
type Operation struct {
	ID             string
	UserID         string
	ServicePointID string
	Status         OperationStatus
	StartedAt      time.Time
	UpdatedAt      time.Time
}

// Active reports whether the shift is still open.
func (o *Operation) Active() bool {
	return o != nil && o.Status == OperationStatusOperating
}

// FinishPolicy decides what happens to an open treatment when its shift ends.
type FinishPolicy string

const (
	FinishPolicyReject FinishPolicy = "reject"
	FinishPolicyCancel FinishPolicy = "cancel"
)

// Valid reports whether the policy is known.
func (p FinishPolicy) Valid() bool {
	return p == FinishPolicyReject || p == FinishPolicyCancel
}
