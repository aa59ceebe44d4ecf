package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/events"
	"github.com/procon/attendance-service/internal/observability"
	"github.com/procon/attendance-service/internal/repository"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

// TreatmentService closes claims, either with a resolution or by cancelling.
type TreatmentService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// TreatmentDependencies bundles collaborators for treatment closure.
type TreatmentDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      func() time.Time
}

// ResolutionInput describes the outcome record filed when finishing.
type ResolutionInput struct {
	Kind              domain.ResolutionKind
	CaseNumber        string
	AuthorizationFile *string
}

// TreatmentOutcome is a closed treatment plus the resolution filed with it.
type TreatmentOutcome struct {
	Treatment  *domain.Treatment
	Resolution *domain.Resolution
}

// NewTreatmentService constructs the service.
func NewTreatmentService(deps TreatmentDependencies) *TreatmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreatmentService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        clockOrNow(deps.Clock),
	}
}

// Finish files the optional resolution and closes the treatment as
// finished in the same transaction.
func (s *TreatmentService) Finish(ctx context.Context, caller Caller, treatmentID string, resolution *ResolutionInput) (*TreatmentOutcome, error) {
	ctx, span := tracer().Start(ctx, "TreatmentService.Finish")
	defer span.End()
	span.SetAttributes(attribute.String("treatment.id", treatmentID), attribute.Bool("treatment.with_resolution", resolution != nil))

	if resolution != nil {
		if err := resolution.validate(); err != nil {
			return nil, err
		}
	}

	var (
		closed *closedTreatment
		filed  *domain.Resolution
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		treatment, err := s.lockOwned(ctx, repos, caller, treatmentID)
		if err != nil {
			return err
		}
		if treatment.Status != domain.TreatmentStatusInService {
			return apperrors.NewTreatmentNotInService(map[string]any{"treatment_id": treatment.ID, "status": treatment.Status})
		}

		if resolution != nil {
			if _, err := repos.Resolutions.GetByTreatment(ctx, treatment.ID); err == nil {
				return apperrors.NewResolutionExists(map[string]any{"treatment_id": treatment.ID})
			} else if !isNoRows(err) {
				return err
			}
			filed = &domain.Resolution{
				TreatmentID:       treatment.ID,
				Kind:              resolution.Kind,
				CaseNumber:        strings.TrimSpace(resolution.CaseNumber),
				AuthorizationFile: resolution.AuthorizationFile,
			}
			if err := repos.Resolutions.Create(ctx, filed); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					return apperrors.NewResolutionExists(map[string]any{"treatment_id": treatment.ID})
				}
				return err
			}
		}

		closed, err = closeTreatment(ctx, repos, treatment, domain.TreatmentActionFinish, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterClose(ctx, caller, closed)
	return &TreatmentOutcome{Treatment: closed.treatment, Resolution: filed}, nil
}

// Cancel closes the treatment as cancelled, cancels its ticket and logs a
// cancelled-service pause on the operation.
func (s *TreatmentService) Cancel(ctx context.Context, caller Caller, treatmentID string) (*domain.Treatment, error) {
	ctx, span := tracer().Start(ctx, "TreatmentService.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("treatment.id", treatmentID))

	var closed *closedTreatment
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		treatment, err := s.lockOwned(ctx, repos, caller, treatmentID)
		if err != nil {
			return err
		}
		closed, err = closeTreatment(ctx, repos, treatment, domain.TreatmentActionCancel, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterClose(ctx, caller, closed)
	return closed.treatment, nil
}

// Get returns a treatment visible to the caller.
func (s *TreatmentService) Get(ctx context.Context, caller Caller, treatmentID string) (*domain.Treatment, error) {
	repos := s.store.Repositories()
	treatment, err := repos.Treatments.GetByID(ctx, treatmentID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFound("treatment", map[string]any{"treatment_id": treatmentID})
		}
		return nil, err
	}
	op, err := operationOf(ctx, repos, treatment)
	if err != nil {
		return nil, err
	}
	if err := caller.owns(op); err != nil {
		return nil, err
	}
	return treatment, nil
}

func operationOf(ctx context.Context, repos repository.Repositories, treatment *domain.Treatment) (*domain.Operation, error) {
	op, err := repos.Operations.GetByID(ctx, treatment.OperationID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFound("operation", map[string]any{"operation_id": treatment.OperationID})
		}
		return nil, err
	}
	return op, nil
}

func (s *TreatmentService) lockOwned(ctx context.Context, repos repository.Repositories, caller Caller, treatmentID string) (*domain.Treatment, error) {
	treatment, err := repos.Treatments.LockByID(ctx, treatmentID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFound("treatment", map[string]any{"treatment_id": treatmentID})
		}
		return nil, err
	}
	op, err := operationOf(ctx, repos, treatment)
	if err != nil {
		return nil, err
	}
	if err := caller.owns(op); err != nil {
		return nil, err
	}
	return treatment, nil
}

func (s *TreatmentService) afterClose(ctx context.Context, caller Caller, closed *closedTreatment) {
	s.metrics.RecordTreatmentClosed(string(closed.treatment.Status), closed.minutes)
	s.logger.Info("treatment closed",
		zap.String("treatment_id", closed.treatment.ID),
		zap.String("status", string(closed.treatment.Status)),
		zap.Int("duration_minutes", closed.minutes),
	)
	publishEvent(ctx, s.dispatcher, s.now, closed.event(caller))
}

func (in ResolutionInput) validate() error {
	if !in.Kind.Valid() {
		return apperrors.NewValidationError("unknown resolution kind", map[string]any{"kind": in.Kind})
	}
	if strings.TrimSpace(in.CaseNumber) == "" {
		return apperrors.NewValidationError("case_number is required", nil)
	}
	return nil
}

type closedTreatment struct {
	treatment *domain.Treatment
	minutes   int
}

func (c *closedTreatment) event(caller Caller) events.Event {
	eventType := events.EventTreatmentFinished
	if c.treatment.Status == domain.TreatmentStatusCancelled {
		eventType = events.EventTreatmentCancelled
	}
	return events.Event{
		Type:     eventType,
		TicketID: c.treatment.TicketID,
		Actor:    caller.actor(),
		Payload: events.TreatmentClosedPayload{
			TreatmentID:     c.treatment.ID,
			Status:          c.treatment.Status,
			DurationMinutes: c.minutes,
		},
	}
}

// closeTreatment applies action to an in_service treatment and mirrors the
// result on its ticket. Cancelling also logs a pause on the operation.
func closeTreatment(ctx context.Context, repos repository.Repositories, treatment *domain.Treatment, action domain.TreatmentAction, now time.Time) (*closedTreatment, error) {
	next, ok := domain.NextTreatmentStatus(action, treatment.Status)
	if !ok {
		return nil, apperrors.NewTreatmentNotInService(map[string]any{"treatment_id": treatment.ID, "status": treatment.Status})
	}

	minutes := domain.ElapsedMinutes(treatment.CreatedAt, now)
	if err := repos.Treatments.Close(ctx, treatment.ID, next, minutes); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewTreatmentNotInService(map[string]any{"treatment_id": treatment.ID})
		}
		return nil, err
	}

	ticketStatus := domain.TicketStatusFinished
	if next == domain.TreatmentStatusCancelled {
		ticketStatus = domain.TicketStatusCanceled
	}
	if treatment.TicketID != "" {
		if err := repos.Tickets.UpdateStatus(ctx, treatment.TicketID, ticketStatus); err != nil && !isNoRows(err) {
			return nil, err
		}
	}

	if next == domain.TreatmentStatusCancelled {
		pause := &domain.Pause{OperationID: treatment.OperationID, Reason: domain.PauseReasonCancelledService}
		if err := repos.Pauses.Create(ctx, pause); err != nil {
			return nil, err
		}
	}

	closed := *treatment
	closed.Status = next
	closed.DurationMinutes = &minutes
	closed.UpdatedAt = now
	return &closedTreatment{treatment: &closed, minutes: minutes}, nil
}
