package dto

import (
	"time"

	"github.com/procon/attendance-service/internal/domain"
)

// StartOperationRequest payload.
type StartOperationRequest struct {
	ServicePointID string `json:"service_point_id"`
}

// OperationResponse is the public view of a shift.
type OperationResponse struct {
	ID             string                 `json:"id"`
	UserID         string                 `json:"user_id"`
	ServicePointID string                 `json:"service_point_id"`
	Status         domain.OperationStatus `json:"status"`
	StartedAt      time.Time              `json:"started_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// NewOperationResponse maps an operation.
func NewOperationResponse(op *domain.Operation) OperationResponse {
	return OperationResponse{
		ID:             op.ID,
		UserID:         op.UserID,
		ServicePointID: op.ServicePointID,
		Status:         op.Status,
		StartedAt:      op.StartedAt,
		UpdatedAt:      op.UpdatedAt,
	}
}

// PauseRequest payload.
type PauseRequest struct {
	Reason string `json:"reason"`
}

// PauseResponse is one entry of a shift's pause log.
type PauseResponse struct {
	ID          string    `json:"id"`
	OperationID string    `json:"operation_id"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewPauseResponse maps a pause.
func NewPauseResponse(p *domain.Pause) PauseResponse {
	return PauseResponse{ID: p.ID, OperationID: p.OperationID, Reason: p.Reason, CreatedAt: p.CreatedAt}
}

// NewPauseList maps pauses.
func NewPauseList(pauses []domain.Pause) []PauseResponse {
	out := make([]PauseResponse, 0, len(pauses))
	for i := range pauses {
		out = append(out, NewPauseResponse(&pauses[i]))
	}
	return out
}

// ServicePointResponse is a service point with its availability.
type ServicePointResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	SectorID     string              `json:"sector_id"`
	Availability domain.Availability `json:"availability"`
}

// NewServicePointList maps service points.
func NewServicePointList(points []domain.ServicePoint) []ServicePointResponse {
	out := make([]ServicePointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, ServicePointResponse{ID: p.ID, Name: p.Name, SectorID: p.SectorID, Availability: p.Availability})
	}
	return out
}

// TreatmentResponse is the public view of a claim.
type TreatmentResponse struct {
	ID              string                 `json:"id"`
	TicketID        string                 `json:"ticket_id"`
	OperationID     string                 `json:"operation_id"`
	Status          domain.TreatmentStatus `json:"status"`
	DurationMinutes *int                   `json:"duration_minutes"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// NewTreatmentResponse maps a treatment.
func NewTreatmentResponse(t *domain.Treatment) TreatmentResponse {
	return TreatmentResponse{
		ID:              t.ID,
		TicketID:        t.TicketID,
		OperationID:     t.OperationID,
		Status:          t.Status,
		DurationMinutes: t.DurationMinutes,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// ResolutionRequest describes the outcome filed with a finished treatment.
type ResolutionRequest struct {
	Kind              domain.ResolutionKind `json:"kind"`
	CaseNumber        string                `json:"case_number"`
	AuthorizationFile *string               `json:"authorization_file"`
}

// FinishTreatmentRequest payload; the resolution is optional.
type FinishTreatmentRequest struct {
	Resolution *ResolutionRequest `json:"resolution"`
}

// ResolutionResponse is the public view of a resolution.
type ResolutionResponse struct {
	ID                string                `json:"id"`
	Kind              domain.ResolutionKind `json:"kind"`
	CaseNumber        string                `json:"case_number"`
	AuthorizationFile *string               `json:"authorization_file,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

// FinishTreatmentResponse carries the closed treatment and its resolution.
type FinishTreatmentResponse struct {
	Treatment  TreatmentResponse   `json:"treatment"`
	Resolution *ResolutionResponse `json:"resolution,omitempty"`
}

// NewFinishTreatmentResponse maps a closure outcome.
func NewFinishTreatmentResponse(t *domain.Treatment, r *domain.Resolution) FinishTreatmentResponse {
	resp := FinishTreatmentResponse{Treatment: NewTreatmentResponse(t)}
	if r != nil {
		resp.Resolution = &ResolutionResponse{
			ID:                r.ID,
			Kind:              r.Kind,
			CaseNumber:        r.CaseNumber,
			AuthorizationFile: r.AuthorizationFile,
			CreatedAt:         r.CreatedAt,
		}
	}
	return resp
}
