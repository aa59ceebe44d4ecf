package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/procon/attendance-service/internal/domain"
	"github.com/procon/attendance-service/internal/events"
	"github.com/procon/attendance-service/internal/observability"
	"github.com/procon/attendance-service/internal/repository"
	apperrors "github.com/procon/attendance-service/pkg/util"
)

// DispatchService hands the next pending ticket to a staff member's shift.
type DispatchService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	ordering   domain.OrderingPolicy
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// DispatchDependencies bundles collaborators for the dispatcher.
type DispatchDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Ordering   domain.OrderingPolicy
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Clock      func() time.Time
}

// NewDispatchService constructs the service.
func NewDispatchService(deps DispatchDependencies) *DispatchService {
	ordering := deps.Ordering
	if !ordering.Valid() {
		ordering = domain.OrderingFIFO
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		ordering:   ordering,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        clockOrNow(deps.Clock),
	}
}

// CallNext claims the next pending ticket of the caller's sector for the
// caller's active operation. The checks and the claim run in one
// transaction; the panel is notified after commit.
func (s *DispatchService) CallNext(ctx context.Context, caller Caller) (*domain.Treatment, error) {
	ctx, span := tracer().Start(ctx, "DispatchService.CallNext")
	defer span.End()
	span.SetAttributes(attribute.String("staff.id", caller.StaffID), attribute.String("queue.ordering", string(s.ordering)))

	var (
		treatment *domain.Treatment
		op        *domain.Operation
		point     *domain.ServicePoint
		sector    *domain.Sector
		client    string
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		op, err = repos.Operations.LockActiveByUser(ctx, caller.StaffID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewNoActiveOperation()
			}
			return err
		}

		if open, err := repos.Treatments.GetInServiceByOperation(ctx, op.ID); err == nil {
			return apperrors.NewTreatmentInProgress(map[string]any{"treatment_id": open.ID})
		} else if !isNoRows(err) {
			return err
		}

		point, err = repos.ServicePoints.GetByID(ctx, op.ServicePointID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewServicePointNotFound(map[string]any{"service_point_id": op.ServicePointID})
			}
			return err
		}
		sector, err = repos.Sectors.GetByID(ctx, point.SectorID)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewSectorNotFound(map[string]any{"sector_id": point.SectorID})
			}
			return err
		}

		ticket, err := repos.Tickets.NextPending(ctx, sector.ID, s.ordering)
		if err != nil {
			if isNoRows(err) {
				return apperrors.NewNoPendingTicket(map[string]any{"sector_id": sector.ID})
			}
			return err
		}

		// The device announces this claim, so its names are read here rather
		// than from the roster after commit.
		if ticket.ClientID != "" {
			if c, err := repos.Clients.GetByID(ctx, ticket.ClientID); err == nil {
				client = c.Name
			} else if !isNoRows(err) {
				return err
			}
		}

		treatment = &domain.Treatment{TicketID: ticket.ID, OperationID: op.ID}
		if err := repos.Treatments.Create(ctx, treatment); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperrors.NewTreatmentInProgress(map[string]any{"operation_id": op.ID})
			}
			return err
		}
		return repos.Tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusInAttendance)
	})
	if err != nil {
		outcome := apperrors.ToDomainError(err).Type
		s.metrics.RecordDispatch(outcome)
		span.SetAttributes(attribute.String("queue.outcome", outcome))
		if outcome == apperrors.TypeInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error("call next failed", zap.String("staff_id", caller.StaffID), zap.Error(err))
		}
		return nil, err
	}

	s.metrics.RecordDispatch("claimed")
	span.SetAttributes(attribute.String("queue.outcome", "claimed"), attribute.String("ticket.id", treatment.TicketID))
	s.logger.Info("ticket called",
		zap.String("ticket_id", treatment.TicketID),
		zap.String("treatment_id", treatment.ID),
		zap.String("operation_id", op.ID),
	)

	publishEvent(ctx, s.dispatcher, s.now, events.Event{
		Type:     events.EventTicketCalled,
		TicketID: treatment.TicketID,
		Actor:    caller.actor(),
		Payload: events.TicketCalledPayload{
			TreatmentID:    treatment.ID,
			OperationID:    op.ID,
			ServicePointID:   point.ID,
			SectorID:         point.SectorID,
			ClientName:       client,
			ServicePointName: point.Name,
			SectorName:       sector.Name,
		},
	})
	return treatment, nil
}

// Current returns the open treatment of the caller's active operation.
func (s *DispatchService) Current(ctx context.Context, caller Caller) (*domain.Treatment, error) {
	repos := s.store.Repositories()
	op, err := repos.Operations.GetActiveByUser(ctx, caller.StaffID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNoActiveOperation()
		}
		return nil, err
	}
	treatment, err := repos.Treatments.GetInServiceByOperation(ctx, op.ID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NewNotFound("treatment", map[string]any{"operation_id": op.ID})
		}
		return nil, err
	}
	return treatment, nil
}
