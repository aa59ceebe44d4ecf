package domain

import "time"

// TreatmentStatus enumerates claim states.
type TreatmentStatus string

const (
	TreatmentStatusInService TreatmentStatus = "in_service"
	TreatmentStatusFinished  TreatmentStatus = "finished"
	TreatmentStatusCancelled TreatmentStatus = "cancelled"
)

// TreatmentAction names a transition out of in_service.
type TreatmentAction string

const (
	TreatmentActionFinish TreatmentAction = "finish"
	TreatmentActionCancel TreatmentAction = "cancel"
)

var treatmentTransitions = map[TreatmentAction]struct {
	from []TreatmentStatus
	to   TreatmentStatus
}{
	TreatmentActionFinish: {from: []TreatmentStatus{TreatmentStatusInService}, to: TreatmentStatusFinished},
	TreatmentActionCancel: {from: []TreatmentStatus{TreatmentStatusInService}, to: TreatmentStatusCancelled},
}

// NextTreatmentStatus returns the status reached by applying action to from.
func NextTreatmentStatus(action TreatmentAction, from TreatmentStatus) (TreatmentStatus, bool) {
	rule, ok := treatmentTransitions[action]
	if !ok {
		return "", false
	}
	for _, status := range rule.from {
		if status == from {
			return rule.to, true
		}
	}
	return "", false
}

// Treatment binds one ticket to one operation while it is being served.
type Treatment struct {
	ID              string
	TicketID        string
	OperationID     string
	Status          TreatmentStatus
	DurationMinutes *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ElapsedMinutes returns whole minutes between start and end, never negative.
func ElapsedMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// Call is the resolved view of a treatment used by the panel.
type Call struct {
	TreatmentID      string
	TicketID         string
	ClientName       string
	ServicePointName string
	SectorName       string
	Priority         TicketPriority
	CalledAt         time.Time
}

// CounterLabel renders "<service point> - <sector>".
func (c Call) CounterLabel() string {
	return c.ServicePointName + " - " + c.SectorName
}
