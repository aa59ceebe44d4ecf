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

// OperationService manages staff shifts and service point availability.
type OperationService struct {
	store        repository.Store
	dispatcher   events.Dispatcher
	finishPolicy domain.FinishPolicy
	logger       *zap.Logger
	metrics      *observability.Metrics
	now          func() time.Time
}

// OperationDependencies bundles collaborators for shift management.
type OperationDependencies struct {
	Store        repository.Store
	Dispatcher   events.Dispatcher
	FinishPolicy domain.FinishPolicy
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Clock        func() time.Time
}

// NewOperationService constructs the service.
func NewOperationService(deps OperationDependencies) *OperationService {
	policy := deps.FinishPolicy
	if !policy.Valid() {
		policy = domain.FinishPolicyReject
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperationService{
		store:        deps.Store,
		dispatcher:   deps.Dispatcher,
		finishPolicy: policy,
		logger:       logger,
		metrics:      deps.Metrics,
		now:          clockOrNow(deps.Clock),
	}
}

// Start opens a shift for the caller at servicePointID and marks the point
// as operating.
func (s *OperationService) Start(ctx context.Context, caller Caller, servicePointID string) (*domain.Operation, error) {
	ctx, span := tracer().Start(ctx, "OperationService.Start")
	defer span.End()
	span.SetAttributes(attribute.String("staff.id", caller.StaffID), attribute.String("service_point.id", servicePointID))

	if strings.TrimSpace(servicePointID) == "" {
		return nil, apperrors.NewValidationError("service_point_id is required", nil)
	}

	var op *domain.Operation
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if existing, err := repos.Operations.LockActiveByUser(ctx, caller.StaffID); err == nil {
			return apperrors.NewOperationAlreadyActive(map[string]any{"operation_id": existing.ID})
		} else if !isNoRows(err) {
			return err
		}

		if err := repos.ServicePoints.Claim(ctx, servicePointID); err != nil {
			switch {
			case isNoRows(err):
				return apperrors.NewServicePointNotFound(map[string]any{"service_point_id": servicePointID})
			case errors.Is(err, repository.ErrConflict):
				return apperrors.NewServicePointOccupied(map[string]any{"service_point_id": servicePointID})
			}
			return err
		}

		op = &domain.Operation{UserID: caller.StaffID, ServicePointID: servicePointID}
		if err := repos.Operations.Create(ctx, op); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperrors.NewOperationAlreadyActive(nil)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("operation started", zap.String("operation_id", op.ID), zap.String("service_point_id", servicePointID))
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:    events.EventOperationStarted,
		Actor:   caller.actor(),
		Payload: events.OperationPayload{OperationID: op.ID, ServicePointID: servicePointID},
	})
	return op, nil
}

// Finish closes a shift and frees its service point. An open treatment is
// either rejected or cancelled, depending on the finish policy.
func (s *OperationService) Finish(ctx context.Context, caller Caller, operationID string) (*domain.Operation, error) {
	ctx, span := tracer().Start(ctx, "OperationService.Finish")
	defer span.End()
	span.SetAttributes(attribute.String("operation.id", operationID), attribute.String("operation.finish_policy", string(s.finishPolicy)))

	var (
		op        *domain.Operation
		cancelled *closedTreatment
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		op, err = repos.Operations.LockByID(ctx, operationID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewNotFound("operation", map[string]any{"operation_id": operationID})
			}
			return err
		}
		if err := caller.owns(op); err != nil {
			return err
		}
		if !op.Active() {
			return apperrors.NewOperationNotActive(map[string]any{"operation_id": op.ID})
		}

		open, err := repos.Treatments.GetInServiceByOperation(ctx, op.ID)
		switch {
		case err == nil && s.finishPolicy == domain.FinishPolicyReject:
			return apperrors.NewTreatmentInProgress(map[string]any{"treatment_id": open.ID})
		case err == nil:
			cancelled, err = closeTreatment(ctx, repos, open, domain.TreatmentActionCancel, s.now())
			if err != nil {
				return err
			}
		case !isNoRows(err):
			return err
		}

		if err := repos.Operations.UpdateStatus(ctx, op.ID, domain.OperationStatusFinished); err != nil {
			return err
		}
		op.Status = domain.OperationStatusFinished
		return repos.ServicePoints.SetAvailability(ctx, op.ServicePointID, domain.AvailabilityFree)
	})
	if err != nil {
		return nil, err
	}

	if cancelled != nil {
		s.logger.Warn("open treatment cancelled with its operation",
			zap.String("operation_id", op.ID),
			zap.String("treatment_id", cancelled.treatment.ID),
		)
		s.metrics.RecordTreatmentClosed(string(cancelled.treatment.Status), cancelled.minutes)
		publishEvent(ctx, s.dispatcher, s.now, cancelled.event(caller))
	}
	s.logger.Info("operation finished", zap.String("operation_id", op.ID), zap.String("service_point_id", op.ServicePointID))
	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:    events.EventOperationFinished,
		Actor:   caller.actor(),
		Payload: events.OperationPayload{OperationID: op.ID, ServicePointID: op.ServicePointID},
	})
	return op, nil
}

// Active returns the caller's open shift.
func (s *OperationService) Active(ctx context.Context, caller Caller) (*domain.Operation, error) {
	op, err := s.store.Repositories().Operations.GetActiveByUser(ctx, caller.StaffID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNoActiveOperation()
		}
		return nil, err
	}
	return op, nil
}

// RecordPause appends a pause entry to an operating shift owned by the caller.
func (s *OperationService) RecordPause(ctx context.Context, caller Caller, operationID, reason string) (*domain.Pause, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason is required", nil)
	}

	repos := s.store.Repositories()
	op, err := repos.Operations.GetByID(ctx, operationID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFound("operation", map[string]any{"operation_id": operationID})
		}
		return nil, err
	}
	if op.UserID != caller.StaffID {
		return nil, apperrors.NewForbidden("operation belongs to another staff member")
	}
	if !op.Active() {
		return nil, apperrors.NewOperationNotActive(map[string]any{"operation_id": op.ID})
	}

	pause := &domain.Pause{OperationID: op.ID, Reason: reason}
	if err := repos.Pauses.Create(ctx, pause); err != nil {
		return nil, err
	}
	return pause, nil
}

// ListPauses returns the pause log of an operation.
func (s *OperationService) ListPauses(ctx context.Context, caller Caller, operationID string) ([]domain.Pause, error) {
	repos := s.store.Repositories()
	op, err := repos.Operations.GetByID(ctx, operationID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFound("operation", map[string]any{"operation_id": operationID})
		}
		return nil, err
	}
	if err := caller.owns(op); err != nil {
		return nil, err
	}
	return repos.Pauses.ListByOperation(ctx, op.ID)
}

// ListServicePoints returns every service point with its availability.
func (s *OperationService) ListServicePoints(ctx context.Context) ([]domain.ServicePoint, error) {
	return s.store.Repositories().ServicePoints.List(ctx)
}
