package domain

import "time"

// PauseReasonCancelledService is logged when a treatment is cancelled.
const PauseReasonCancelledService = "cancelled-service"

// Pause is an append-only audit entry for an unproductive stretch of an operation.
type Pause struct {
	ID          string
	OperationID string
	Reason      string
	CreatedAt   time.Time
}
